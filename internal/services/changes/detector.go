package changes

import "github.com/BearBump/PickupBox/internal/models"

// Set holds the streams whose date changed in one update cycle.
type Set map[models.WasteStream]struct{}

func (s Set) Has(w models.WasteStream) bool {
	_, ok := s[w]
	return ok
}

// Streams returns the changed streams in models.WasteStreams order.
func (s Set) Streams() []models.WasteStream {
	out := make([]models.WasteStream, 0, len(s))
	for _, w := range models.WasteStreams {
		if s.Has(w) {
			out = append(out, w)
		}
	}
	return out
}

// Detect merges incoming dates into previous and reports which streams changed.
// Dates compare as exact strings. Streams missing from incoming keep their previous value.
func Detect(previous models.PickupRecord, incoming []models.PickupEntry) (models.PickupRecord, Set) {
	merged := previous.Clone()
	changed := Set{}
	for _, e := range incoming {
		if cur, ok := merged[e.Stream]; ok && cur == e.Date {
			continue
		}
		merged[e.Stream] = e.Date
		changed[e.Stream] = struct{}{}
	}
	return merged, changed
}
