package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/BearBump/PickupBox/internal/broker/messages"
	"github.com/BearBump/PickupBox/internal/i18n"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	got []messages.Notification
	err error
}

func (r *recordingSink) Send(ctx context.Context, n messages.Notification) error {
	r.got = append(r.got, n)
	return r.err
}

type fakeProducer struct {
	topic string
	key   []byte
	value []byte
	calls int
	err   error
}

func (p *fakeProducer) Publish(ctx context.Context, topic string, key, value []byte) error {
	p.calls++
	p.topic, p.key, p.value = topic, key, value
	return p.err
}

func newService(t *testing.T, sink Sink) *Service {
	cat, err := i18n.Load("en")
	require.NoError(t, err)
	return New(cat, sink)
}

func TestService_RendersLocalizedExcerpts(t *testing.T) {
	sink := &recordingSink{}
	s := newService(t, sink)
	ctx := context.Background()

	s.NoStreetAddress(ctx)
	s.AddressUnmatched(ctx, "Storgatan 1")
	s.ResolutionError(ctx, errors.New("connection refused"))
	s.FetchError(ctx, errors.New("http 502"))
	s.StaleSchedule(ctx)

	require.Len(t, sink.got, 5)
	kinds := []string{}
	for _, n := range sink.got {
		kinds = append(kinds, n.Kind)
		require.Contains(t, n.Excerpt, Prefix)
	}
	require.Equal(t, []string{
		KindNoStreetAddress, KindNoPlant, KindFetchPlantError, KindFetchPickupError, KindNextDateInPast,
	}, kinds)
	require.Contains(t, sink.got[1].Excerpt, "Storgatan 1")
	require.Contains(t, sink.got[2].Excerpt, "connection refused")
	require.Contains(t, sink.got[3].Excerpt, "http 502")
}

func TestService_SinkErrorIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("broker down")}
	s := newService(t, sink)
	require.NotPanics(t, func() { s.StaleSchedule(context.Background()) })
	require.Len(t, sink.got, 1)
}

func TestKafkaSink_Send(t *testing.T) {
	fp := &fakeProducer{}
	s := newService(t, NewKafkaSink(fp, "pickup.notifications"))
	s.AddressUnmatched(context.Background(), "Storgatan 1")

	require.Equal(t, 1, fp.calls)
	require.Equal(t, "pickup.notifications", fp.topic)
	require.Equal(t, KindNoPlant, string(fp.key))

	var n messages.Notification
	require.NoError(t, json.Unmarshal(fp.value, &n))
	require.Equal(t, KindNoPlant, n.Kind)
	require.Contains(t, n.Excerpt, "Storgatan 1")
}

func TestNew_DefaultsToLogSink(t *testing.T) {
	s := newService(t, nil)
	require.IsType(t, LogSink{}, s.sink)
}
