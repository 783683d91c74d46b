package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/pkg/errors"
)

type PickupSource interface {
	NextPickups(ctx context.Context, plant models.LocationID) ([]wasteapi.Pickup, error)
}

// Fetcher loads upcoming pickups for a plant and maps them onto the known waste streams.
type Fetcher struct {
	src PickupSource
}

func New(src PickupSource) *Fetcher {
	return &Fetcher{src: src}
}

func (f *Fetcher) FetchSchedule(ctx context.Context, plant models.LocationID) ([]models.PickupEntry, error) {
	if !plant.Valid() {
		return nil, errors.Wrapf(models.ErrInvalidLocation, "plant number %d", plant)
	}

	raw, err := f.src.NextPickups(ctx, plant)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrScheduleFetch, err)
	}

	out := make([]models.PickupEntry, 0, len(raw))
	for _, p := range raw {
		stream, ok := models.ParseWasteStream(p.Type)
		if !ok {
			slog.Warn("skipping unknown waste type", "plant_number", int64(plant), "type", p.Type)
			continue
		}
		date := strings.TrimSpace(p.PickupDate)
		if date == "" {
			slog.Warn("skipping pickup without date", "plant_number", int64(plant), "type", p.Type)
			continue
		}
		out = append(out, models.PickupEntry{Stream: stream, Date: date})
	}
	return out, nil
}
