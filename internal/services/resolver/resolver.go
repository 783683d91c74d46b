package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/pkg/errors"
)

type AddressLookup interface {
	LookupAddress(ctx context.Context, address string) ([]wasteapi.Address, error)
}

// Resolver turns a street address into a plant number.
type Resolver struct {
	lookup AddressLookup
}

func New(lookup AddressLookup) *Resolver {
	return &Resolver{lookup: lookup}
}

// Resolve returns the plant number of the first match.
//
// Failures still carry the identifier the caller should persist:
// LocationUnresolved with ErrAddressUnresolved when nothing matched,
// LocationFailed with ErrAddressResolutionTransport when the lookup itself failed.
func (r *Resolver) Resolve(ctx context.Context, address string) (models.LocationID, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.LocationUnresolved, models.ErrEmptyAddress
	}

	matches, err := r.lookup.LookupAddress(ctx, address)
	if err != nil {
		return models.LocationFailed, fmt.Errorf("%w: %w", models.ErrAddressResolutionTransport, err)
	}
	if len(matches) == 0 {
		return models.LocationUnresolved, errors.Wrapf(models.ErrAddressUnresolved, "address %q", address)
	}
	if len(matches) > 1 {
		slog.Debug("address matched several plants, using the first", "address", address, "matches", len(matches))
	}

	id := matches[0].PlantNumber
	if !id.Valid() {
		return models.LocationFailed, errors.Wrapf(models.ErrAddressResolutionTransport, "malformed plant_number %d", id)
	}
	return id, nil
}
