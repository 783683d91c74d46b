package imminent

import (
	"time"

	"github.com/BearBump/PickupBox/internal/models"
)

// PickupHour is the local hour a collection is considered to happen.
const PickupHour = 6

// Window is how close the next pickup must be to count as imminent.
const Window = 24 * time.Hour

type Result int

const (
	// Unknown means no pickup date has been stored yet.
	Unknown Result = iota
	Imminent
	NotImminent
	// Stale means the next stored pickup is already in the past.
	Stale
)

func (r Result) String() string {
	switch r {
	case Imminent:
		return "IMMINENT"
	case NotImminent:
		return "NOT_IMMINENT"
	case Stale:
		return "STALE"
	default:
		return "UNKNOWN"
	}
}

// NextPickup returns the earliest present date at PickupHour in loc.
func NextPickup(organic, residual models.OptionalDate, loc *time.Location) (time.Time, bool) {
	next := organic
	switch {
	case !organic.Valid && !residual.Valid:
		return time.Time{}, false
	case !organic.Valid:
		next = residual
	case residual.Valid && residual.Before(organic):
		next = residual
	}
	return next.At(PickupHour, loc), true
}

// Evaluate classifies how far now is from the next pickup.
func Evaluate(now time.Time, organic, residual models.OptionalDate, loc *time.Location) Result {
	next, ok := NextPickup(organic, residual, loc)
	if !ok {
		return Unknown
	}

	diff := next.Sub(now)
	switch {
	case diff <= 0:
		return Stale
	case diff < Window:
		return Imminent
	default:
		return NotImminent
	}
}
