package models

import "github.com/pkg/errors"

var (
	ErrEmptyAddress               = errors.New("street address is empty")
	ErrAddressUnresolved          = errors.New("address did not match any plant")
	ErrAddressResolutionTransport = errors.New("address resolution failed")
	ErrInvalidLocation            = errors.New("plant number is not resolved")
	ErrScheduleFetch              = errors.New("pickup schedule fetch failed")
	ErrStaleScheduleData          = errors.New("next pickup date is in the past")
	ErrMissingConfiguration       = errors.New("no valid street address configured")
)
