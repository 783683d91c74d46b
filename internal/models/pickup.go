package models

import (
	"strings"
	"time"
)

// WasteStream is one of the two collection types tracked for an address.
type WasteStream string

const (
	WasteStreamOrganic  WasteStream = "matavfall"
	WasteStreamResidual WasteStream = "restavfall"
)

// WasteStreams lists the closed set in a stable order.
var WasteStreams = []WasteStream{WasteStreamOrganic, WasteStreamResidual}

// ParseWasteStream matches a remote type tag case-insensitively.
func ParseWasteStream(s string) (WasteStream, bool) {
	switch WasteStream(strings.ToLower(strings.TrimSpace(s))) {
	case WasteStreamOrganic:
		return WasteStreamOrganic, true
	case WasteStreamResidual:
		return WasteStreamResidual, true
	default:
		return "", false
	}
}

func (w WasteStream) String() string { return string(w) }

// LocationID is the plant number of a collection point.
// 0 means unresolved, negative means resolution failed for the current address.
type LocationID int64

const (
	LocationUnresolved LocationID = 0
	LocationFailed     LocationID = -1
)

func (id LocationID) Valid() bool { return id > 0 }

// PickupEntry is one {type, date} pair from the schedule endpoint.
// Date is kept as the raw string the remote returned.
type PickupEntry struct {
	Stream WasteStream
	Date   string
}

// PickupRecord holds the latest known date per stream.
type PickupRecord map[WasteStream]string

func (r PickupRecord) Clone() PickupRecord {
	out := make(PickupRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Date returns the stored date for a stream as an optional calendar date.
func (r PickupRecord) Date(w WasteStream) OptionalDate {
	v, ok := r[w]
	if !ok {
		return OptionalDate{}
	}
	return ParseDate(v)
}

const dateLayout = "2006-01-02"

// OptionalDate is a calendar date that may be absent.
type OptionalDate struct {
	Year  int
	Month time.Month
	Day   int
	Valid bool
}

func NewDate(year int, month time.Month, day int) OptionalDate {
	return OptionalDate{Year: year, Month: month, Day: day, Valid: true}
}

// ParseDate reads the leading YYYY-MM-DD part of an ISO-ish date string.
// Anything unparsable yields an absent date.
func ParseDate(s string) OptionalDate {
	s = strings.TrimSpace(s)
	if len(s) < len(dateLayout) {
		return OptionalDate{}
	}
	t, err := time.Parse(dateLayout, s[:len(dateLayout)])
	if err != nil {
		return OptionalDate{}
	}
	return NewDate(t.Year(), t.Month(), t.Day())
}

// At returns the instant of hour:00 local time on this date.
func (d OptionalDate) At(hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, hour, 0, 0, 0, loc)
}

func (d OptionalDate) Before(o OptionalDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d OptionalDate) String() string {
	if !d.Valid {
		return ""
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Format(dateLayout)
}
