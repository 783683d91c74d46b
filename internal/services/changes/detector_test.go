package changes

import (
	"testing"

	"github.com/BearBump/PickupBox/internal/models"
	"github.com/stretchr/testify/require"
)

func TestDetect_OneStreamChanged(t *testing.T) {
	prev := models.PickupRecord{
		models.WasteStreamOrganic:  "2024-01-10",
		models.WasteStreamResidual: "2024-01-12",
	}
	merged, changed := Detect(prev, []models.PickupEntry{
		{Stream: models.WasteStreamOrganic, Date: "2024-02-01"},
	})

	require.Equal(t, models.PickupRecord{
		models.WasteStreamOrganic:  "2024-02-01",
		models.WasteStreamResidual: "2024-01-12",
	}, merged)
	require.Equal(t, []models.WasteStream{models.WasteStreamOrganic}, changed.Streams())
	// previous is not mutated
	require.Equal(t, "2024-01-10", prev[models.WasteStreamOrganic])
}

func TestDetect_NoPriorValueIsChange(t *testing.T) {
	merged, changed := Detect(models.PickupRecord{}, []models.PickupEntry{
		{Stream: models.WasteStreamResidual, Date: "2024-01-12"},
		{Stream: models.WasteStreamOrganic, Date: "2024-01-10"},
	})
	require.Len(t, merged, 2)
	require.Equal(t, []models.WasteStream{models.WasteStreamOrganic, models.WasteStreamResidual}, changed.Streams())
}

func TestDetect_IdenticalIsNoop(t *testing.T) {
	prev := models.PickupRecord{
		models.WasteStreamOrganic:  "2024-01-10",
		models.WasteStreamResidual: "2024-01-12",
	}
	merged, changed := Detect(prev, []models.PickupEntry{
		{Stream: models.WasteStreamOrganic, Date: "2024-01-10"},
		{Stream: models.WasteStreamResidual, Date: "2024-01-12"},
	})
	require.Empty(t, changed)
	require.Equal(t, prev, merged)
}

func TestDetect_Idempotent(t *testing.T) {
	incoming := []models.PickupEntry{
		{Stream: models.WasteStreamOrganic, Date: "2024-02-01"},
		{Stream: models.WasteStreamResidual, Date: "2024-02-03"},
	}
	first, changed := Detect(models.PickupRecord{models.WasteStreamOrganic: "2024-01-10"}, incoming)
	require.Len(t, changed, 2)

	second, changed := Detect(first, incoming)
	require.Empty(t, changed)
	require.Equal(t, first, second)
}

func TestDetect_StringComparisonNotSemantic(t *testing.T) {
	prev := models.PickupRecord{models.WasteStreamOrganic: "2024-01-10"}
	_, changed := Detect(prev, []models.PickupEntry{
		{Stream: models.WasteStreamOrganic, Date: "2024-01-10T00:00:00"},
	})
	require.True(t, changed.Has(models.WasteStreamOrganic))
}

func TestDetect_EmptyIncoming(t *testing.T) {
	prev := models.PickupRecord{models.WasteStreamOrganic: "2024-01-10"}
	merged, changed := Detect(prev, nil)
	require.Empty(t, changed)
	require.Equal(t, prev, merged)
}
