package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPickupSource struct {
	mock.Mock
}

func (m *MockPickupSource) NextPickups(ctx context.Context, plant models.LocationID) ([]wasteapi.Pickup, error) {
	args := m.Called(ctx, plant)
	res, _ := args.Get(0).([]wasteapi.Pickup)
	return res, args.Error(1)
}

func TestFetcher_FetchSchedule_NormalizesTypes(t *testing.T) {
	src := new(MockPickupSource)
	src.On("NextPickups", mock.Anything, models.LocationID(42)).Return([]wasteapi.Pickup{
		{Type: "Matavfall", PickupDate: "2024-02-01"},
		{Type: "RESTAVFALL", PickupDate: "2024-01-12"},
		{Type: "Trädgårdsavfall", PickupDate: "2024-03-01"},
		{Type: "restavfall", PickupDate: ""},
	}, nil)

	got, err := New(src).FetchSchedule(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, []models.PickupEntry{
		{Stream: models.WasteStreamOrganic, Date: "2024-02-01"},
		{Stream: models.WasteStreamResidual, Date: "2024-01-12"},
	}, got)
	src.AssertExpectations(t)
}

func TestFetcher_FetchSchedule_RejectsInvalidPlant(t *testing.T) {
	src := new(MockPickupSource)
	f := New(src)

	for _, id := range []models.LocationID{0, -1} {
		_, err := f.FetchSchedule(context.Background(), id)
		require.ErrorIs(t, err, models.ErrInvalidLocation)
	}
	src.AssertNotCalled(t, "NextPickups", mock.Anything, mock.Anything)
}

func TestFetcher_FetchSchedule_WrapsSourceError(t *testing.T) {
	src := new(MockPickupSource)
	src.On("NextPickups", mock.Anything, models.LocationID(1)).Return(nil, errors.New("decode: unexpected EOF"))

	_, err := New(src).FetchSchedule(context.Background(), 1)
	require.ErrorIs(t, err, models.ErrScheduleFetch)
	require.ErrorContains(t, err, "unexpected EOF")
}

func TestFetcher_FetchSchedule_KeepsCause(t *testing.T) {
	src := new(MockPickupSource)
	src.On("NextPickups", mock.Anything, models.LocationID(1)).Return(nil, context.DeadlineExceeded)

	_, err := New(src).FetchSchedule(context.Background(), 1)
	require.ErrorIs(t, err, models.ErrScheduleFetch)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
