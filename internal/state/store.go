package state

import (
	"context"
	"strconv"
	"sync"

	"github.com/BearBump/PickupBox/internal/models"
	"github.com/pkg/errors"
)

// Recognized settings keys.
const (
	KeyStreetAddress = "streetaddress"
	KeyPlantNumber   = "plantnumber"
	KeyMatavfall     = string(models.WasteStreamOrganic)
	KeyRestavfall    = string(models.WasteStreamResidual)
)

var Keys = []string{KeyStreetAddress, KeyPlantNumber, KeyMatavfall, KeyRestavfall}

var ErrUnknownKey = errors.New("unknown settings key")

func IsKnownKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Backend is durable string key-value storage.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Keys(ctx context.Context) ([]string, error)
}

// Handler is called after every successful Set of the subscribed key.
type Handler func(key, value string)

type subscription struct {
	id uint64
	fn Handler
}

// Store is the single source of truth for the address, plant number and pickup dates.
// Subscribers are notified synchronously, in subscription order, on every Set,
// including writes of an unchanged value.
type Store struct {
	b Backend

	mu     sync.RWMutex
	subs   map[string][]subscription
	nextID uint64
}

func New(b Backend) *Store {
	return &Store{b: b, subs: map[string][]subscription{}}
}

// Subscribe registers fn for key and returns a function that removes it.
func (s *Store) Subscribe(key string, fn Handler) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.subs[key] = append(s.subs[key], subscription{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			list := s.subs[key]
			for i, sub := range list {
				if sub.id == id {
					s.subs[key] = append(list[:i:i], list[i+1:]...)
					break
				}
			}
		})
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if !IsKnownKey(key) {
		return "", false, errors.Wrap(ErrUnknownKey, key)
	}
	v, ok, err := s.b.Get(ctx, key)
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if !IsKnownKey(key) {
		return errors.Wrap(ErrUnknownKey, key)
	}
	if err := s.b.Set(ctx, key, value); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}

	s.mu.RLock()
	list := append([]subscription(nil), s.subs[key]...)
	s.mu.RUnlock()

	for _, sub := range list {
		sub.fn(key, value)
	}
	return nil
}

// All returns every stored recognized key.
func (s *Store) All(ctx context.Context) (map[string]string, error) {
	keys, err := s.b.Keys(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list keys")
	}
	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if !IsKnownKey(k) {
			continue
		}
		v, ok, err := s.b.Get(ctx, k)
		if err != nil {
			return nil, errors.Wrapf(err, "get %s", k)
		}
		if ok {
			out[k] = v
		}
	}
	return out, nil
}

func (s *Store) StreetAddress(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, KeyStreetAddress)
}

// LocationID returns the stored plant number. A value that does not parse counts as unresolved.
func (s *Store) LocationID(ctx context.Context) (models.LocationID, bool, error) {
	v, ok, err := s.Get(ctx, KeyPlantNumber)
	if err != nil || !ok {
		return models.LocationUnresolved, ok, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return models.LocationUnresolved, true, nil
	}
	return models.LocationID(n), true, nil
}

func (s *Store) SetLocationID(ctx context.Context, id models.LocationID) error {
	return s.Set(ctx, KeyPlantNumber, strconv.FormatInt(int64(id), 10))
}

func (s *Store) PickupRecord(ctx context.Context) (models.PickupRecord, error) {
	rec := models.PickupRecord{}
	for _, w := range models.WasteStreams {
		v, ok, err := s.Get(ctx, string(w))
		if err != nil {
			return nil, err
		}
		if ok {
			rec[w] = v
		}
	}
	return rec, nil
}

func (s *Store) SetPickupDate(ctx context.Context, w models.WasteStream, date string) error {
	return s.Set(ctx, string(w), date)
}
