package fake

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/models"
)

// FakeClient answers without network access, for local runs and demos.
// Plant numbers are derived from the address, pickup dates from the plant number.
type FakeClient struct {
	now func() time.Time
}

func New() *FakeClient { return &FakeClient{now: time.Now} }

func (f *FakeClient) LookupAddress(ctx context.Context, address string) ([]wasteapi.Address, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return []wasteapi.Address{}, nil
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(address)))
	v := h.Sum32()

	// Roughly one address in ten does not exist.
	if v%10 == 0 {
		return []wasteapi.Address{}, nil
	}
	return []wasteapi.Address{{
		PlantNumber: models.LocationID(1 + v%100000),
		Address:     address,
	}}, nil
}

func (f *FakeClient) NextPickups(ctx context.Context, plant models.LocationID) ([]wasteapi.Pickup, error) {
	today := f.now()
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)

	// Organic every week, residual every other week, with a plant dependent weekday.
	offset := int(plant % 7)
	organic := today.AddDate(0, 0, 1+offset)
	residual := organic.AddDate(0, 0, 7*int(plant%2))

	return []wasteapi.Pickup{
		{Type: "Matavfall", PickupDate: organic.Format("2006-01-02")},
		{Type: "Restavfall", PickupDate: residual.Format("2006-01-02")},
	}, nil
}
