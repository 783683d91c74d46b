package settings

import (
	"context"
	"strconv"
	"strings"

	"github.com/BearBump/PickupBox/internal/broker/messages"
	"github.com/BearBump/PickupBox/internal/state"
	"github.com/pkg/errors"
)

var ErrInvalidValue = errors.New("invalid setting value")

type Store interface {
	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// Service validates external writes before they reach the store.
type Service struct {
	store Store
}

func New(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) All(ctx context.Context) (map[string]string, error) {
	return s.store.All(ctx)
}

func (s *Service) Update(ctx context.Context, key, value string) error {
	if !state.IsKnownKey(key) {
		return errors.Wrap(state.ErrUnknownKey, key)
	}
	if err := validate(key, value); err != nil {
		return err
	}
	return s.store.Set(ctx, key, value)
}

func validate(key, value string) error {
	switch key {
	case state.KeyPlantNumber:
		if _, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err != nil {
			return errors.Wrap(ErrInvalidValue, "plantnumber must be an integer")
		}
	case state.KeyMatavfall, state.KeyRestavfall:
		if len(value) > 256 {
			return errors.Wrapf(ErrInvalidValue, "%s is too long", key)
		}
	}
	return nil
}

func (s *Service) ApplyKafkaUpdate(ctx context.Context, msg messages.SettingChanged) error {
	if msg.Key == "" {
		return errors.Wrap(ErrInvalidValue, "key is required")
	}
	return s.Update(ctx, msg.Key, msg.Value)
}

// IsRejected reports whether err came from validation rather than storage.
func IsRejected(err error) bool {
	return errors.Is(err, state.ErrUnknownKey) || errors.Is(err, ErrInvalidValue)
}
