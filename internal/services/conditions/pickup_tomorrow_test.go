package conditions

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BearBump/PickupBox/internal/models"
	"github.com/BearBump/PickupBox/internal/services/imminent"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) PickupRecord(ctx context.Context) (models.PickupRecord, error) {
	args := m.Called(ctx)
	rec, _ := args.Get(0).(models.PickupRecord)
	return rec, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) StaleSchedule(ctx context.Context) {
	m.Called(ctx)
}

func TestPickupTomorrow_Check(t *testing.T) {
	loc := time.FixedZone("CET", 3600)

	tests := []struct {
		name      string
		now       time.Time
		record    models.PickupRecord
		want      bool
		wantState imminent.Result
		wantStale bool
	}{
		{
			name:      "pickup tomorrow morning",
			now:       time.Date(2024, time.January, 9, 20, 0, 0, 0, loc),
			record:    models.PickupRecord{models.WasteStreamOrganic: "2024-01-10", models.WasteStreamResidual: "2024-01-12"},
			want:      true,
			wantState: imminent.Imminent,
		},
		{
			name:      "earlier residual date wins",
			now:       time.Date(2024, time.January, 9, 20, 0, 0, 0, loc),
			record:    models.PickupRecord{models.WasteStreamOrganic: "2024-01-17", models.WasteStreamResidual: "2024-01-10"},
			want:      true,
			wantState: imminent.Imminent,
		},
		{
			name:      "two days ahead",
			now:       time.Date(2024, time.January, 8, 5, 0, 0, 0, loc),
			record:    models.PickupRecord{models.WasteStreamOrganic: "2024-01-10", models.WasteStreamResidual: "2024-01-12"},
			wantState: imminent.NotImminent,
		},
		{
			name:      "past pickup time",
			now:       time.Date(2024, time.January, 10, 7, 0, 0, 0, loc),
			record:    models.PickupRecord{models.WasteStreamOrganic: "2024-01-10", models.WasteStreamResidual: "2024-01-12"},
			wantState: imminent.Stale,
			wantStale: true,
		},
		{
			name:      "nothing stored",
			now:       time.Date(2024, time.January, 10, 7, 0, 0, 0, loc),
			record:    models.PickupRecord{},
			wantState: imminent.Unknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := new(MockStore)
			st.On("PickupRecord", mock.Anything).Return(tt.record, nil)
			n := new(MockNotifier)
			if tt.wantStale {
				n.On("StaleSchedule", mock.Anything).Return().Once()
			}

			c := NewPickupTomorrow(st, n, loc)
			c.now = func() time.Time { return tt.now }

			got, state, err := c.Check(context.Background())
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.wantState, state)
			n.AssertExpectations(t)
			if !tt.wantStale {
				n.AssertNotCalled(t, "StaleSchedule", mock.Anything)
			}
		})
	}
}

func TestPickupTomorrow_Check_StaleNotifiesEveryEvaluation(t *testing.T) {
	loc := time.UTC
	st := new(MockStore)
	st.On("PickupRecord", mock.Anything).Return(models.PickupRecord{models.WasteStreamOrganic: "2024-01-01"}, nil)
	n := new(MockNotifier)
	n.On("StaleSchedule", mock.Anything).Return()

	c := NewPickupTomorrow(st, n, loc)
	c.now = func() time.Time { return time.Date(2024, time.January, 5, 0, 0, 0, 0, loc) }

	for i := 0; i < 3; i++ {
		got, _, err := c.Check(context.Background())
		require.NoError(t, err)
		require.False(t, got)
	}
	n.AssertNumberOfCalls(t, "StaleSchedule", 3)
}

func TestPickupTomorrow_Check_StoreError(t *testing.T) {
	st := new(MockStore)
	st.On("PickupRecord", mock.Anything).Return(nil, errors.New("db down"))

	c := NewPickupTomorrow(st, nil, nil)
	got, state, err := c.Check(context.Background())
	require.Error(t, err)
	require.False(t, got)
	require.Equal(t, imminent.Unknown, state)
}

func TestPickupTomorrow_Check_StaleIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	st := new(MockStore)
	st.On("PickupRecord", mock.Anything).Return(models.PickupRecord{models.WasteStreamResidual: "2024-01-01"}, nil)

	c := NewPickupTomorrow(st, nil, time.UTC)
	c.now = func() time.Time { return time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC) }

	_, state, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, imminent.Stale, state)
	require.Contains(t, buf.String(), models.ErrStaleScheduleData.Error())
}
