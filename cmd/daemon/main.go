// SPDX-License-Identifier: MIT

// The actcache daemon serves cached music-act metadata over HTTP, filling
// and refreshing the cache from MusicBrainz and Bandsintown in the
// background.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tourdata/actcache/internal/api"
	"github.com/tourdata/actcache/internal/bandsintown"
	"github.com/tourdata/actcache/internal/config"
	"github.com/tourdata/actcache/internal/enrich"
	aclog "github.com/tourdata/actcache/internal/log"
	"github.com/tourdata/actcache/internal/musicbrainz"
	"github.com/tourdata/actcache/internal/queue"
	"github.com/tourdata/actcache/internal/service"
	"github.com/tourdata/actcache/internal/store"
	"github.com/tourdata/actcache/internal/sweep"
)

var (
	version   = "v1.0.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("actcache %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "actcache: %v\n", err)
		os.Exit(1)
	}

	aclog.Configure(aclog.Config{
		Level:   cfg.LogLevel,
		Mode:    cfg.Mode,
		Service: "actcache",
	})
	logger := aclog.WithComponent("daemon")
	logger.Info().
		Str("event", "daemon.start").
		Str("version", version).
		Str("listen", cfg.Listen).
		Msg("starting actcache")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st := store.NewMongo(cfg.MongoURI, cfg.MongoDatabase)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.Close(closeCtx)
	}()

	// The backend may come up after us; retry index creation with backoff
	// before accepting traffic.
	connect := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	if err := backoff.Retry(func() error {
		ictx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return st.EnsureIndexes(ictx)
	}, connect); err != nil {
		logger.Fatal().Err(err).Str("event", "daemon.store_unreachable").Msg("could not reach the cache store")
	}
	logger.Info().Str("event", "daemon.store_ready").Msg("cache store ready")

	enricher := enrich.New(musicbrainz.New(cfg.MusicBrainzBaseURL), bandsintown.New())
	fetchQueue := queue.New(enricher, st, cfg.QueueDelay)
	svc := service.New(st, fetchQueue, enricher)

	sweeper := sweep.New(st, enricher, cfg.SweepInterval, cfg.SweepRetryDelay)
	go sweeper.Run(ctx)

	server := api.New(api.Config{
		AdminTOTPSecret:   cfg.AdminTOTPSecret,
		RequestsPerMinute: cfg.RequestsPerMinute,
	}, svc, st)

	if err := server.Serve(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Str("event", "daemon.serve_failed").Msg("http server failed")
	}
	logger.Info().Str("event", "daemon.stop").Msg("actcache stopped")
}
