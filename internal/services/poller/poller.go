package poller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/PickupBox/internal/broker/messages"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/BearBump/PickupBox/internal/services/changes"
	"github.com/BearBump/PickupBox/internal/state"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

const DefaultSchedule = "@every 12h"

type Store interface {
	Subscribe(key string, fn state.Handler) (unsubscribe func())
	StreetAddress(ctx context.Context) (string, bool, error)
	LocationID(ctx context.Context) (models.LocationID, bool, error)
	SetLocationID(ctx context.Context, id models.LocationID) error
	PickupRecord(ctx context.Context) (models.PickupRecord, error)
	SetPickupDate(ctx context.Context, w models.WasteStream, date string) error
}

type Resolver interface {
	Resolve(ctx context.Context, address string) (models.LocationID, error)
}

type Fetcher interface {
	FetchSchedule(ctx context.Context, plant models.LocationID) ([]models.PickupEntry, error)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Notifier interface {
	NoStreetAddress(ctx context.Context)
	AddressUnmatched(ctx context.Context, address string)
	ResolutionError(ctx context.Context, err error)
	FetchError(ctx context.Context, err error)
}

type RateLimiter interface {
	Allow(ctx context.Context, scope string, limit int64, now time.Time) (bool, int64, error)
}

// Poller keeps the stored pickup dates in sync with the remote schedule.
// Every cycle runs on the Run goroutine, so fetches never overlap.
type Poller struct {
	store    Store
	resolver Resolver
	fetcher  Fetcher
	producer Producer
	notifier Notifier
	rl       RateLimiter

	topic string

	schedule           string
	loc                *time.Location
	rateLimitPerMinute int64
	now                func() time.Time

	tickCh    chan struct{}
	triggerCh chan struct{}
	addressCh chan struct{}

	pendingMu      sync.Mutex
	pendingAddress string

	attachMu sync.Mutex
	unsubs   []func()

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	lastChangeUnixNano  atomic.Int64
	totalFetches        atomic.Int64
	totalChanges        atomic.Int64
	totalSkipped        atomic.Int64
	totalResolutions    atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(store Store, resolver Resolver, fetcher Fetcher, producer Producer, notifier Notifier, rl RateLimiter, topic string) *Poller {
	return &Poller{
		store: store, resolver: resolver, fetcher: fetcher, producer: producer, notifier: notifier, rl: rl, topic: topic,
		schedule:          DefaultSchedule,
		loc:               time.Local,
		now:               time.Now,
		tickCh:            make(chan struct{}, 1),
		triggerCh:         make(chan struct{}, 1),
		addressCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

func (p *Poller) WithSettings(schedule string, loc *time.Location, rlPerMin int64) *Poller {
	if schedule != "" {
		p.schedule = schedule
	}
	if loc != nil {
		p.loc = loc
	}
	if rlPerMin > 0 {
		p.rateLimitPerMinute = rlPerMin
	}
	return p
}

// Trigger forces an immediate fetch (best-effort, non-blocking).
func (p *Poller) Trigger() {
	p.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	signal(p.triggerCh)
}

func (p *Poller) tick() {
	signal(p.tickCh)
}

// queueAddress schedules re-resolution. Only the latest address is kept.
func (p *Poller) queueAddress(address string) {
	p.pendingMu.Lock()
	p.pendingAddress = address
	p.pendingMu.Unlock()
	signal(p.addressCh)
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt        time.Time  `json:"startedAt"`
	LastCycleAt      *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt    *time.Time `json:"lastTriggerAt,omitempty"`
	LastChangeAt     *time.Time `json:"lastChangeAt,omitempty"`
	TotalFetches     int64      `json:"totalFetches"`
	TotalChanges     int64      `json:"totalChanges"`
	TotalSkipped     int64      `json:"totalSkipped"`
	TotalResolutions int64      `json:"totalResolutions"`
	TotalErrors      int64      `json:"totalErrors"`
	LastError        string     `json:"lastError,omitempty"`
}

func (p *Poller) Stats() Stats {
	st := Stats{
		StartedAt:        time.Unix(0, p.startedAtUnixNano).UTC(),
		TotalFetches:     p.totalFetches.Load(),
		TotalChanges:     p.totalChanges.Load(),
		TotalSkipped:     p.totalSkipped.Load(),
		TotalResolutions: p.totalResolutions.Load(),
		TotalErrors:      p.totalErrors.Load(),
	}
	st.LastCycleAt = unixNanoPtr(p.lastCycleUnixNano.Load())
	st.LastTriggerAt = unixNanoPtr(p.lastTriggerUnixNano.Load())
	st.LastChangeAt = unixNanoPtr(p.lastChangeUnixNano.Load())
	p.lastErrorMu.Lock()
	st.LastError = p.lastError
	p.lastErrorMu.Unlock()
	return st
}

func unixNanoPtr(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	t := time.Unix(0, n).UTC()
	return &t
}

func (p *Poller) recordError(err error) {
	p.totalErrors.Add(1)
	p.lastErrorMu.Lock()
	p.lastError = err.Error()
	p.lastErrorMu.Unlock()
}

// Attach subscribes to address and plant number writes. Writes made after
// Attach and before Run are queued and handled once Run starts. Run attaches
// by itself; call Attach earlier when other writers start before Run.
func (p *Poller) Attach() {
	p.attachMu.Lock()
	defer p.attachMu.Unlock()
	if p.unsubs != nil {
		return
	}
	p.unsubs = []func(){
		p.store.Subscribe(state.KeyStreetAddress, func(_, value string) {
			p.queueAddress(value)
		}),
		p.store.Subscribe(state.KeyPlantNumber, func(_, value string) {
			if id, err := strconv.ParseInt(value, 10, 64); err == nil && models.LocationID(id).Valid() {
				p.Trigger()
			}
		}),
	}
}

func (p *Poller) detach() {
	p.attachMu.Lock()
	defer p.attachMu.Unlock()
	for _, u := range p.unsubs {
		u()
	}
	p.unsubs = nil
}

func (p *Poller) Run(ctx context.Context) error {
	p.Attach()
	defer p.detach()

	c := cron.New(cron.WithLocation(p.loc))
	if _, err := c.AddFunc(p.schedule, p.tick); err != nil {
		return errors.Wrapf(err, "parse poll schedule %q", p.schedule)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	c.Start()
	defer c.Stop()

	p.startup(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.tickCh:
			p.pollStored(ctx, "timer")
		case <-p.triggerCh:
			p.pollStored(ctx, "trigger")
		case <-p.addressCh:
			p.resolvePending(ctx)
		}
	}
}

func (p *Poller) startup(ctx context.Context) {
	id, hasPlant, err := p.store.LocationID(ctx)
	if err != nil {
		slog.Error("read plant number", "error", err.Error())
		p.recordError(err)
		return
	}
	if id.Valid() {
		p.pollStored(ctx, "startup")
		return
	}

	// An address written while the worker was down never got resolved.
	if address, ok, err := p.store.StreetAddress(ctx); err == nil && ok && address != "" && !hasPlant {
		slog.Info("street address without plant number, resolving", "address", address)
		p.queueAddress(address)
		return
	}

	slog.Warn("please review app settings", "error", models.ErrMissingConfiguration.Error())
	p.recordError(models.ErrMissingConfiguration)
	p.notifier.NoStreetAddress(ctx)
}

func (p *Poller) pollStored(ctx context.Context, reason string) {
	id, _, err := p.store.LocationID(ctx)
	if err != nil {
		slog.Error("read plant number", "reason", reason, "error", err.Error())
		p.recordError(err)
		return
	}
	if !id.Valid() {
		slog.Warn("skipping pickup fetch, plant number not resolved", "reason", reason, "plant_number", int64(id))
		p.totalSkipped.Add(1)
		return
	}
	if err := p.refresh(ctx, id); err != nil {
		slog.Error("refresh pickup dates", "reason", reason, "plant_number", int64(id), "error", err.Error())
		p.recordError(err)
	}
}

// refresh fetches the schedule for plant, writes changed dates and fires the trigger once.
func (p *Poller) refresh(ctx context.Context, plant models.LocationID) error {
	now := p.now()
	p.lastCycleUnixNano.Store(now.UTC().UnixNano())

	if p.rl != nil && p.rateLimitPerMinute > 0 {
		allowed, n, err := p.rl.Allow(ctx, fmt.Sprintf("wasteapi:%d", plant), p.rateLimitPerMinute, now)
		switch {
		case err != nil:
			slog.Warn("rate limiter unavailable, fetching anyway", "error", err.Error())
		case !allowed:
			slog.Warn("rate limit exceeded, skipping fetch", "plant_number", int64(plant), "count", n)
			p.totalSkipped.Add(1)
			return nil
		}
	}

	slog.Info("updating pickup dates", "plant_number", int64(plant))
	p.totalFetches.Add(1)

	entries, err := p.fetcher.FetchSchedule(ctx, plant)
	if err != nil {
		if ctx.Err() == nil {
			p.notifier.FetchError(ctx, err)
		}
		return err
	}

	prev, err := p.store.PickupRecord(ctx)
	if err != nil {
		return errors.Wrap(err, "read pickup record")
	}

	merged, changed := changes.Detect(prev, entries)
	if len(changed) == 0 {
		slog.Info("pickup dates unchanged", "plant_number", int64(plant))
		return nil
	}

	for _, w := range changed.Streams() {
		if err := p.store.SetPickupDate(ctx, w, merged[w]); err != nil {
			return errors.Wrapf(err, "store %s", w)
		}
	}
	p.totalChanges.Add(1)
	p.lastChangeUnixNano.Store(now.UTC().UnixNano())

	p.fireNewDates(ctx, plant, changed, now)
	return nil
}

// fireNewDates publishes the new-dates-for-pickup trigger. Failures are logged only.
func (p *Poller) fireNewDates(ctx context.Context, plant models.LocationID, changed changes.Set, now time.Time) {
	rec, err := p.store.PickupRecord(ctx)
	if err != nil {
		slog.Error("read pickup record for trigger", "error", err.Error())
		return
	}

	names := make([]string, 0, len(changed))
	for _, w := range changed.Streams() {
		names = append(names, w.String())
	}
	msg := messages.NewNewDatesForPickup(int64(plant),
		rec[models.WasteStreamOrganic], rec[models.WasteStreamResidual], names, now)

	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal trigger", "error", err.Error())
		return
	}

	key := []byte(strconv.FormatInt(int64(plant), 10))
	if err := p.producer.Publish(ctx, p.topic, key, b); err != nil {
		slog.Error("trigger failed", "trigger", msg.Trigger, "error", err.Error())
		return
	}
	slog.Info("trigger fired", "trigger", msg.Trigger,
		"matavfall", msg.Matavfall, "restavfall", msg.Restavfall, "changed", names)
}

func (p *Poller) resolvePending(ctx context.Context) {
	p.pendingMu.Lock()
	address := p.pendingAddress
	p.pendingMu.Unlock()

	p.totalResolutions.Add(1)
	id, err := p.resolver.Resolve(ctx, address)
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		// Shutting down: leave the stored plant number untouched.
		slog.Info("address resolution interrupted", "address", address)
		return
	}
	switch {
	case err == nil:
		slog.Info("street address resolved", "address", address, "plant_number", int64(id))
	case errors.Is(err, models.ErrEmptyAddress):
		slog.Warn("street address cleared")
		p.notifier.NoStreetAddress(ctx)
	case errors.Is(err, models.ErrAddressUnresolved):
		slog.Warn("no plant number for address, app will not function correctly", "address", address)
		p.notifier.AddressUnmatched(ctx, address)
	default:
		slog.Error("resolve street address", "address", address, "error", err.Error())
		p.recordError(err)
		p.notifier.ResolutionError(ctx, err)
	}

	// Storing a positive id triggers the fetch through the plant number subscription.
	if err := p.store.SetLocationID(ctx, id); err != nil {
		slog.Error("store plant number", "plant_number", int64(id), "error", err.Error())
		p.recordError(err)
	}
}
