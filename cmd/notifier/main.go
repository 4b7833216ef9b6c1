package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portal-notifier/internal/common/aws"
	"portal-notifier/internal/common/camunda"
	"portal-notifier/internal/common/config"
	"portal-notifier/internal/common/database"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/observability"
	"portal-notifier/internal/directory"
	"portal-notifier/internal/i18n"
	"portal-notifier/internal/notifier"
	"portal-notifier/internal/realtime"
	"portal-notifier/internal/sinks"
	sn "portal-notifier/internal/workers/send-notification"
)

func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "notifier: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	log, err := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting notifier", map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})

	ctx := context.Background()

	obs, err := observability.New(cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("observability init failed: %w", err)
	}
	defer obs.Shutdown(context.Background())

	if err := obs.EnableTracing(cfg.Observability.ServiceName, cfg.Observability.JaegerEndpoint); err != nil {
		log.Warn("tracing disabled", map[string]interface{}{"error": err})
	}

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(ctx, cfg.Database.Postgres)
		return err
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		return err
	}
	defer pg.Close()
	log.Info("PostgreSQL connected", nil)

	// --- Redis (cache / pub-sub) ---
	var rdb *database.RedisClient
	if cfg.Database.Redis.Address != "" {
		err = retryWithBackoff(func() error {
			var err error
			rdb, err = database.NewRedis(ctx, cfg.Database.Redis)
			return err
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			return err
		}
		defer rdb.Close()
		log.Info("Redis connected", nil)
	}

	n := cfg.Notifications

	translator, err := i18n.NewDefault(n.DefaultLocale, n.SupportedLocales, n.LocalesDir, log)
	if err != nil {
		return fmt.Errorf("locale files: %w", err)
	}
	resolver := notifier.NewTemplateResolver(translator, n.DefaultLocale, log)

	var dir notifier.RecipientDirectory = directory.NewPostgresDirectory(pg.DB, log)
	if n.Directory.CacheEnabled {
		dir = directory.NewCachedDirectory(dir, rdb.Client, n.Directory.TTL(), log)
	}

	emailSink, err := newEmailSink(ctx, n.Email, log)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(gatewayUserID, log)
	defer hub.Close()

	inAppSink, err := newInAppSink(ctx, n.InApp, hub, rdb, log)
	if err != nil {
		return err
	}

	coordinator := notifier.NewCoordinator(
		resolver,
		notifier.NewDispatcher(inAppSink, emailSink, dir, log),
		log,
		notifier.WithMaxConcurrency(n.MaxConcurrency),
		notifier.WithObservability(obs),
	)

	// --- Zeebe job worker ---
	var zeebe *camunda.Client
	var jobWorker *camunda.Worker
	if cfg.Camunda.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
			return err
		}, 10, 2*time.Second, log, "Zeebe client initialization")
		if err != nil {
			return err
		}
		defer zeebe.Close()

		if config.IsWorkerEnabled(cfg, sn.TaskType) {
			handler, err := sn.NewHandler(sn.HandlerOptions{
				AppConfig:     cfg,
				Notifier:      coordinator,
				Logger:        log,
				Observability: obs,
			})
			if err != nil {
				return err
			}
			jobWorker = camunda.StartWorker(zeebe.GetClient(), sn.TaskType, config.GetWorkerConfig(cfg, sn.TaskType), handler, log)
		}
	}

	// --- HTTP: health, metrics, websocket ---
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}
		status := http.StatusOK
		check := func(name string, fn func(context.Context) error) {
			pingCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := fn(pingCtx); err != nil {
				checks[name] = err.Error()
				status = http.StatusServiceUnavailable
				return
			}
			checks[name] = "ok"
		}
		check("postgres", pg.Ping)
		if rdb != nil {
			check("redis", rdb.Ping)
		}
		if zeebe != nil {
			check("zeebe", zeebe.HealthCheck)
		}
		writeJSON(w, status, checks)
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws/notifications/{connectionId}", hub.ServeWS)

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info("shutdown signal received", nil)
	case err := <-serverErr:
		log.Error("HTTP server failed", map[string]interface{}{"error": err})
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if jobWorker != nil {
		jobWorker.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", map[string]interface{}{"error": err})
	}

	log.Info("notifier stopped", nil)
	return nil
}

func newEmailSink(ctx context.Context, cfg config.EmailConfig, log logger.Logger) (notifier.EmailSink, error) {
	switch cfg.Transport {
	case config.EmailTransportSES:
		client, err := aws.NewSESClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		return sinks.NewSESEmailSink(client, cfg.FromEmail, log), nil
	case config.EmailTransportSMTP:
		client, err := sinks.NewSMTPClient(cfg.SMTP)
		if err != nil {
			return nil, err
		}
		return sinks.NewSMTPEmailSink(client, cfg.FromEmail, log), nil
	default:
		log.Warn("no email transport configured; email deliveries report not_configured", nil)
		return nil, nil
	}
}

func newInAppSink(ctx context.Context, cfg config.InAppConfig, hub *realtime.Hub, rdb *database.RedisClient, log logger.Logger) (notifier.InAppSink, error) {
	switch cfg.Transport {
	case config.InAppTransportRedis:
		return sinks.NewRedisPushSink(rdb.Client, cfg.ChannelPrefix, log), nil
	case config.InAppTransportSNS:
		client, err := aws.NewSNSClient(ctx, cfg.Region)
		if err != nil {
			return nil, err
		}
		return sinks.NewSNSPushSink(client, cfg.TopicARN, log), nil
	default:
		return hub, nil
	}
}

// gatewayUserID trusts the user id set by the authenticating API gateway.
func gatewayUserID(r *http.Request) (int64, error) {
	raw := r.Header.Get("X-User-Id")
	if raw == "" {
		return 0, errors.New("missing X-User-Id")
	}
	return strconv.ParseInt(raw, 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
