package conditions

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/PickupBox/internal/models"
	"github.com/BearBump/PickupBox/internal/services/imminent"
)

type Store interface {
	PickupRecord(ctx context.Context) (models.PickupRecord, error)
}

type Notifier interface {
	StaleSchedule(ctx context.Context)
}

// PickupTomorrow answers whether the next pickup starts within the coming 24 hours.
type PickupTomorrow struct {
	store    Store
	notifier Notifier
	loc      *time.Location
	now      func() time.Time
}

func NewPickupTomorrow(store Store, notifier Notifier, loc *time.Location) *PickupTomorrow {
	if loc == nil {
		loc = time.Local
	}
	return &PickupTomorrow{store: store, notifier: notifier, loc: loc, now: time.Now}
}

// Check evaluates the stored dates. Only Imminent yields true; every Stale
// evaluation sends one next_date_in_past notification.
func (c *PickupTomorrow) Check(ctx context.Context) (bool, imminent.Result, error) {
	rec, err := c.store.PickupRecord(ctx)
	if err != nil {
		return false, imminent.Unknown, err
	}

	res := imminent.Evaluate(c.now(), rec.Date(models.WasteStreamOrganic), rec.Date(models.WasteStreamResidual), c.loc)
	switch res {
	case imminent.Stale:
		slog.Warn("the time for next pickup is outdated",
			"error", models.ErrStaleScheduleData.Error(),
			"matavfall", rec[models.WasteStreamOrganic], "restavfall", rec[models.WasteStreamResidual])
		if c.notifier != nil {
			c.notifier.StaleSchedule(ctx)
		}
	case imminent.Imminent:
		slog.Info("less than 24 hours until next pickup, returning true")
	case imminent.NotImminent:
		slog.Info("more than 24 hours until next pickup, returning false")
	default:
		slog.Info("no pickup dates stored, returning false")
	}
	return res == imminent.Imminent, res, nil
}
