package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kubo-market/minio-sentinel/internal/config"
	"github.com/kubo-market/minio-sentinel/internal/cooldown"
	"github.com/kubo-market/minio-sentinel/internal/handler"
	"github.com/kubo-market/minio-sentinel/internal/insight"
	"github.com/kubo-market/minio-sentinel/internal/monitor"
	"github.com/kubo-market/minio-sentinel/internal/notify"
	"github.com/kubo-market/minio-sentinel/internal/promquery"
	"github.com/kubo-market/minio-sentinel/internal/snapshot"
	"github.com/kubo-market/minio-sentinel/internal/storage"
	"github.com/kubo-market/minio-sentinel/internal/window"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	if os.Getenv("LOG_FORMAT") == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().
		Str("prometheus", cfg.PrometheusURL).
		Int("metrics", len(cfg.Metrics)).
		Int("check_interval_s", cfg.CheckIntervalSeconds).
		Int("cooldown_s", cfg.AlertCooldownSeconds).
		Int("baseline_h", cfg.BaselineWindowHours).
		Bool("insights", cfg.OpenWebUI.Enabled()).
		Msg("minio-sentinel starting")

	// Metrics source and alert sink
	source := promquery.NewClient(cfg.PrometheusURL, 10*time.Second)
	notifier := notify.NewNotifier(cfg.DiscordWebhookURL)

	// Optional insight enrichment
	var enricher monitor.Enricher
	if cfg.OpenWebUI.Enabled() {
		enricher = insight.NewClient(cfg.OpenWebUI.URL, cfg.OpenWebUI.APIKey, cfg.OpenWebUI.Model, cfg.InsightTimeout())
		log.Info().Str("url", cfg.OpenWebUI.URL).Str("model", cfg.OpenWebUI.Model).Msg("insight enrichment enabled")
	} else {
		log.Info().Msg("insight enrichment disabled")
	}

	// Optional alert history
	var db *sql.DB
	var repo storage.AlertRepository
	if cfg.DatabaseDSN != "" {
		db, err = storage.NewPostgresDB(cfg.DatabaseDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		repo = storage.NewPostgresRepository(db)
		log.Info().Msg("alert history enabled")
	}

	// Optional restart journal
	var journal monitor.Journal
	if cfg.RedisAddr != "" {
		rs, err := snapshot.NewRedisStore(cfg.RedisAddr, cfg.BaselineWindow())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rs.Close()
		journal = rs
		log.Info().Str("addr", cfg.RedisAddr).Msg("sample journal enabled")
	}

	// Engine state
	windows := window.New(window.Config{
		Retention:  cfg.BaselineWindow(),
		RecentSize: cfg.RecentWindowSize,
	})
	gate := cooldown.NewGate()

	mon := monitor.New(cfg, source, windows, gate, notifier, enricher, repo, journal, log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mon.Warmup(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mon.Run(ctx)
	}()

	// Status HTTP surface
	healthHandler := handler.NewHealthHandler(source, dbPinger(db))
	statusHandler := handler.NewStatusHandler(windows, gate, cfg.AlertCooldown())
	alertsHandler := handler.NewAlertsHandler(repo)

	r := mux.NewRouter()
	r.HandleFunc("/health", healthHandler.Health).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", statusHandler.Status).Methods(http.MethodGet)
	r.HandleFunc("/v1/alerts", alertsHandler.Recent).Methods(http.MethodGet)
	r.HandleFunc("/v1/metrics/{name}/alerts", alertsHandler.ByMetric).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler())

	var h http.Handler = r
	h = handler.RequestID(h)
	h = handler.Logging(h)
	h = handler.Recovery(h)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      h,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info().Msg("shutting down...")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", cfg.ListenAddr).Msg("status server listening")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}

	wg.Wait()
	log.Info().Msg("stopped")
}

// dbPinger adapts *sql.DB to the handler.Pinger interface, or nil when no
// database is configured.
func dbPinger(db *sql.DB) handler.Pinger {
	if db == nil {
		return nil
	}
	return pingAdapter{db}
}

type pingAdapter struct{ db *sql.DB }

func (p pingAdapter) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }
