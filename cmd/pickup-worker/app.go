package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BearBump/PickupBox/config"
	pickupapi "github.com/BearBump/PickupBox/internal/api/pickup_api"
	"github.com/BearBump/PickupBox/internal/broker/kafka"
	"github.com/BearBump/PickupBox/internal/broker/messages"
	"github.com/BearBump/PickupBox/internal/cache/rediscache"
	"github.com/BearBump/PickupBox/internal/i18n"
	"github.com/BearBump/PickupBox/internal/integrations/wasteapi"
	"github.com/BearBump/PickupBox/internal/integrations/wasteapi/fake"
	"github.com/BearBump/PickupBox/internal/integrations/wasteapi/uehttp"
	"github.com/BearBump/PickupBox/internal/notify"
	"github.com/BearBump/PickupBox/internal/services/conditions"
	"github.com/BearBump/PickupBox/internal/services/poller"
	"github.com/BearBump/PickupBox/internal/services/resolver"
	"github.com/BearBump/PickupBox/internal/services/schedule"
	"github.com/BearBump/PickupBox/internal/services/settings"
	"github.com/BearBump/PickupBox/internal/services/tokens"
	"github.com/BearBump/PickupBox/internal/state"
	"github.com/BearBump/PickupBox/internal/storage/pgsettings"
	"github.com/BearBump/PickupBox/internal/storage/redissettings"
	"github.com/BearBump/PickupBox/internal/storage/sqlitesettings"
)

const (
	defaultNewDatesTopic      = "pickup.new-dates"
	defaultNotificationsTopic = "pickup.notifications"
	defaultSettingsTopic      = "pickup.settings"
	defaultConsumerGroup      = "pickup-worker"
	defaultTimezone           = "Europe/Stockholm"
	defaultSQLitePath         = "data/pickupbox.db"
)

type kafkaConsumer interface {
	Consume(ctx context.Context, handler func(key, value []byte) error) error
	Close() error
}

type workerFactories struct {
	newStorage     func(cfg *config.Config) (b state.Backend, closeFn func(), err error)
	newProducer    func(cfg *config.Config) poller.Producer
	newConsumer    func(cfg *config.Config, topic, group string) kafkaConsumer
	newRateLimiter func(cfg *config.Config) poller.RateLimiter
	newWasteClient func(cfg *config.Config) wasteapi.Client
}

func postgresConnString(cfg *config.Config) string {
	sslMode := cfg.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, sslMode)
}

func brokers(cfg *config.Config) []string {
	return []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
}

func redisAddr(cfg *config.Config) string {
	return fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config) (state.Backend, func(), error) {
			switch strings.ToLower(cfg.Storage.Driver) {
			case "", "postgres":
				st, err := openPostgresWithRetry(postgresConnString(cfg), 60*time.Second)
				if err != nil {
					return nil, nil, err
				}
				return st, st.Close, nil
			case "redis":
				st := redissettings.New(redisAddr(cfg), cfg.Storage.RedisKeyPrefix)
				return st, func() { _ = st.Close() }, nil
			case "sqlite":
				path := cfg.Storage.SQLitePath
				if path == "" {
					path = defaultSQLitePath
				}
				st, err := sqlitesettings.New(path)
				if err != nil {
					return nil, nil, err
				}
				return st, func() { _ = st.Close() }, nil
			case "memory":
				return state.NewMemoryBackend(), nil, nil
			default:
				return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
			}
		},
		newProducer: func(cfg *config.Config) poller.Producer {
			return kafka.NewProducer(brokers(cfg))
		},
		newConsumer: func(cfg *config.Config, topic, group string) kafkaConsumer {
			return kafka.NewConsumer(brokers(cfg), topic, group)
		},
		newRateLimiter: func(cfg *config.Config) poller.RateLimiter {
			if cfg.PickupBox.RateLimitPerMinute <= 0 {
				return nil
			}
			return rediscache.NewRateLimiter(redisAddr(cfg))
		},
		newWasteClient: func(cfg *config.Config) wasteapi.Client {
			// "fake" runs the worker without network access.
			if cfg.PickupBox.APIBaseURL == "fake" {
				return fake.New()
			}
			return uehttp.New(cfg.PickupBox.APIBaseURL)
		},
	}
}

func openPostgresWithRetry(connString string, wait time.Duration) (*pgsettings.Storage, error) {
	deadline := time.Now().Add(wait)
	var lastErr error
	for time.Now().Before(deadline) {
		st, err := pgsettings.New(connString)
		if err == nil {
			return st, nil
		}
		lastErr = err
		time.Sleep(1 * time.Second)
	}
	return nil, fmt.Errorf("postgres is not ready after %s: %v", wait, lastErr)
}

type workerSettings struct {
	newDatesTopic      string
	notificationsTopic string
	settingsTopic      string
	consumerGroup      string
	schedule           string
	loc                *time.Location
	language           string
	rlPerMin           int64
}

func resolveWorkerSettings(cfg *config.Config) (workerSettings, error) {
	s := workerSettings{
		newDatesTopic:      cfg.Kafka.NewDatesTopicName,
		notificationsTopic: cfg.Kafka.NotificationsTopicName,
		settingsTopic:      cfg.Kafka.SettingsTopicName,
		consumerGroup:      cfg.PickupBox.KafkaConsumerGroup,
		schedule:           cfg.PickupBox.PollSchedule,
		language:           cfg.PickupBox.Language,
		rlPerMin:           int64(cfg.PickupBox.RateLimitPerMinute),
	}
	if s.newDatesTopic == "" {
		s.newDatesTopic = defaultNewDatesTopic
	}
	if s.notificationsTopic == "" {
		s.notificationsTopic = defaultNotificationsTopic
	}
	if s.settingsTopic == "" {
		s.settingsTopic = defaultSettingsTopic
	}
	if s.consumerGroup == "" {
		s.consumerGroup = defaultConsumerGroup
	}
	if s.schedule == "" {
		s.schedule = poller.DefaultSchedule
	}
	if s.language == "" {
		s.language = i18n.DefaultLanguage
	}
	if s.rlPerMin < 0 {
		s.rlPerMin = 0
	}

	tz := cfg.PickupBox.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return s, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	s.loc = loc
	return s, nil
}

type worker struct {
	poller  *poller.Poller
	api     *pickupapi.PickupAPI
	cfg     *config.Config
	consume func(ctx context.Context) error
	close   func()
}

func buildWorker(ctx context.Context, cfg *config.Config, f workerFactories) (*worker, error) {
	ws, err := resolveWorkerSettings(cfg)
	if err != nil {
		return nil, err
	}
	cat, err := i18n.Load(ws.language)
	if err != nil {
		return nil, err
	}

	backend, closeFn, err := f.newStorage(cfg)
	if err != nil {
		return nil, err
	}
	store := state.New(backend)

	producer := f.newProducer(cfg)
	notifier := notify.New(cat, notify.NewKafkaSink(producer, ws.notificationsTopic))
	client := f.newWasteClient(cfg)

	p := poller.New(store, resolver.New(client), schedule.New(client), producer, notifier, f.newRateLimiter(cfg), ws.newDatesTopic).
		WithSettings(ws.schedule, ws.loc, ws.rlPerMin)

	toks := tokens.New(cat)
	if err := toks.Attach(ctx, store); err != nil {
		if closeFn != nil {
			closeFn()
		}
		return nil, err
	}

	svc := settings.New(store)
	w := &worker{
		poller: p,
		api:    pickupapi.New(svc, conditions.NewPickupTomorrow(store, notifier, ws.loc), toks),
		cfg:    cfg,
	}

	var consumer kafkaConsumer
	if f.newConsumer != nil {
		consumer = f.newConsumer(cfg, ws.settingsTopic, ws.consumerGroup)
		w.consume = func(ctx context.Context) error {
			slog.Info("kafka consumer started", "topic", ws.settingsTopic, "group", ws.consumerGroup)
			return consumer.Consume(ctx, settingsHandler(ctx, svc))
		}
	}

	w.close = func() {
		toks.Detach()
		if consumer != nil {
			_ = consumer.Close()
		}
		if c, ok := producer.(interface{ Close() error }); ok {
			_ = c.Close()
		}
		if closeFn != nil {
			closeFn()
		}
	}
	return w, nil
}

// settingsHandler applies one SettingChanged message. Malformed and rejected
// messages are skipped so they do not block the partition.
func settingsHandler(ctx context.Context, svc *settings.Service) func(key, value []byte) error {
	return func(_, value []byte) error {
		var m messages.SettingChanged
		if err := json.Unmarshal(value, &m); err != nil {
			return kafka.Skip(err)
		}
		if err := svc.ApplyKafkaUpdate(ctx, m); err != nil {
			if settings.IsRejected(err) {
				return kafka.Skip(err)
			}
			return err
		}
		slog.Info("setting applied from kafka", "key", m.Key)
		return nil
	}
}

// RunPickupWorker blocks until ctx ends. When httpOpts is set the HTTP
// server runs alongside the poller and its failure stops the worker.
func RunPickupWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts *workerHTTPOpts) error {
	w, err := buildWorker(ctx, cfg, f)
	if err != nil {
		return err
	}
	defer w.close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Settings replayed by the consumer must reach the poller's subscriptions.
	w.poller.Attach()

	if w.consume != nil {
		go func() {
			if err := w.consume(ctx); err != nil && ctx.Err() == nil {
				slog.Error("kafka consumer stopped", "error", err.Error())
			}
		}()
	}

	httpErr := make(chan error, 1)
	if httpOpts != nil {
		opts := *httpOpts
		opts.poller, opts.api, opts.cfg = w.poller, w.api, w.cfg
		go func() {
			httpErr <- runWorkerHTTPServer(ctx, opts)
		}()
	}

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- w.poller.Run(ctx)
	}()

	select {
	case err := <-pollErr:
		return err
	case err := <-httpErr:
		cancel()
		if perr := <-pollErr; err == nil || errors.Is(err, http.ErrServerClosed) {
			return perr
		}
		return err
	}
}
