package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/BearBump/PickupBox/internal/broker/messages"
	"github.com/BearBump/PickupBox/internal/i18n"
)

// Prefix starts every notification excerpt.
const Prefix = "Uddevalla Energi: "

// Notification kinds, named after their catalog keys.
const (
	KindNoStreetAddress  = "no_street_address"
	KindNoPlant          = "no_plant"
	KindFetchPlantError  = "fetch_plant_error"
	KindFetchPickupError = "fetch_pickup_error"
	KindNextDateInPast   = "next_date_in_past"
)

type Sink interface {
	Send(ctx context.Context, n messages.Notification) error
}

// Service renders localized notifications and hands them to a sink.
// Delivery is fire-and-forget: sink errors are logged, never returned.
type Service struct {
	cat  *i18n.Catalog
	sink Sink
	now  func() time.Time
}

func New(cat *i18n.Catalog, sink Sink) *Service {
	if sink == nil {
		sink = LogSink{}
	}
	return &Service{cat: cat, sink: sink, now: time.Now}
}

func (s *Service) NoStreetAddress(ctx context.Context) {
	s.send(ctx, KindNoStreetAddress, nil)
}

func (s *Service) AddressUnmatched(ctx context.Context, address string) {
	s.send(ctx, KindNoPlant, map[string]string{"address": address})
}

func (s *Service) ResolutionError(ctx context.Context, err error) {
	s.send(ctx, KindFetchPlantError, map[string]string{"error": errText(err)})
}

func (s *Service) FetchError(ctx context.Context, err error) {
	s.send(ctx, KindFetchPickupError, map[string]string{"error": errText(err)})
}

func (s *Service) StaleSchedule(ctx context.Context) {
	s.send(ctx, KindNextDateInPast, nil)
}

func (s *Service) send(ctx context.Context, kind string, params map[string]string) {
	excerpt := Prefix + s.cat.T("notifications."+kind, params)
	n := messages.NewNotification(kind, excerpt, s.now())
	if err := s.sink.Send(ctx, n); err != nil {
		slog.Error("send notification", "kind", kind, "error", err.Error())
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// KafkaSink publishes notifications as JSON keyed by kind.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (k *KafkaSink) Send(ctx context.Context, n messages.Notification) error {
	b, err := json.Marshal(n)
	if err != nil {
		return err
	}
	if err := k.producer.Publish(ctx, k.topic, []byte(n.Kind), b); err != nil {
		return err
	}
	slog.Info("notification sent", "kind", n.Kind, "excerpt", n.Excerpt)
	return nil
}

// LogSink only logs, for runs without a broker.
type LogSink struct{}

func (LogSink) Send(ctx context.Context, n messages.Notification) error {
	slog.Warn("notification", "kind", n.Kind, "excerpt", n.Excerpt)
	return nil
}
