package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/salesdash/api/config"
	"github.com/malbeclabs/salesdash/api/handlers"
	"github.com/malbeclabs/salesdash/api/metrics"
	"github.com/malbeclabs/salesdash/api/server"
	"github.com/malbeclabs/salesdash/ingest/pkg/merge"
	"github.com/malbeclabs/salesdash/ingest/pkg/schema"
	"github.com/malbeclabs/salesdash/ingest/pkg/source"
	"github.com/malbeclabs/salesdash/utils/pkg/logger"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	envFileFlag := flag.String("env-file", ".env", "Optional env file read before the environment")
	verboseFlag := flag.Bool("verbose", false, "Enable verbose (debug) logging (or set VERBOSE=true)")
	flag.Parse()

	if err := config.LoadDotEnv(*envFileFlag); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv(os.Getenv)
	if err != nil {
		return err
	}
	if *verboseFlag {
		cfg.Verbose = true
	}

	log := logger.New(cfg.Verbose)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.SentryEnvironment,
			Release:     version,
		}); err != nil {
			return fmt.Errorf("failed to initialize sentry: %w", err)
		}
		defer sentry.Flush(2 * time.Second)
		log.Info("sentry enabled", "environment", cfg.SentryEnvironment)
	}

	if cfg.MetricsAddr != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", cfg.MetricsAddr)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, mux); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sch, err := schema.Load(cfg.SchemaFile)
	if err != nil {
		return err
	}
	src, err := source.New(ctx, cfg.DataDir, source.Options{
		Logger:    log,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
	if err != nil {
		return fmt.Errorf("failed to open data source: %w", err)
	}

	clock := clockwork.NewRealClock()
	start := clock.Now()
	ds, err := merge.Build(ctx, merge.BuildConfig{
		Logger: log,
		Clock:  clock,
		Source: src,
		Schema: sch,
	})
	if err != nil {
		return fmt.Errorf("failed to load sales data from %s: %w", src.Location(), err)
	}
	unmatched := make(map[string]int, len(ds.Report().Joins))
	for name, js := range ds.Report().Joins {
		unmatched[name] = js.Unmatched
	}
	metrics.RecordDataset(ds.Len(), clock.Since(start), unmatched)

	srv, err := server.New(server.Config{
		Logger:             log,
		ListenAddr:         cfg.ListenAddr,
		ShutdownTimeout:    cfg.ShutdownTimeout,
		VersionInfo:        handlers.VersionInfo{Version: version, Commit: commit, Date: date},
		Dataset:            ds,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RatePerMinute:      cfg.RatePerMinute,
		RateBurst:          cfg.RateBurst,
		Sentry:             cfg.SentryDSN != "",
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	return srv.Run(ctx)
}
