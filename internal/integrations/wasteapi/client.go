package wasteapi

import (
	"context"

	"github.com/BearBump/PickupBox/internal/models"
)

// Address is one match returned by the address lookup endpoint.
type Address struct {
	PlantNumber models.LocationID
	Address     string
}

// Pickup is one raw entry from the schedule endpoint. Type is the remote tag as sent.
type Pickup struct {
	Type       string
	PickupDate string
}

type Client interface {
	LookupAddress(ctx context.Context, address string) ([]Address, error)
	NextPickups(ctx context.Context, plant models.LocationID) ([]Pickup, error)
}
