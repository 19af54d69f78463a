package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/voyagen/channeldesk/internal/cache"
	"github.com/voyagen/channeldesk/internal/config"
	"github.com/voyagen/channeldesk/internal/logger"
	"github.com/voyagen/channeldesk/internal/metrics"
	"github.com/voyagen/channeldesk/internal/resolver"
	"github.com/voyagen/channeldesk/internal/server"
	"github.com/voyagen/channeldesk/internal/service"
	"github.com/voyagen/channeldesk/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use env DATABASE_URL")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	if err := store.RunMigrations(cfg.DatabaseURL, "file://"+migrationsDir()); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer pg.Close()

	m := metrics.Default()

	// Connect to Redis if REDIS_URL is configured.
	var (
		rds      *cache.Redis
		appStore store.Store = pg
		locker   cache.Locker
		queue    *cache.RedisQueue
	)
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("redis")
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			log.Fatal().Err(err).Msg("redis ping")
		}

		appStore = store.NewCachedStore(pg, rds, m, log.With().Str("component", "cache").Logger())
		locker = cache.NewRedisLocker(rds)
		queue = cache.NewRedisQueue(rds)
		log.Info().Msg("redis connected (caching, distributed sync lock, async sync)")
	} else {
		locker = cache.NewLocalLocker()
		log.Info().Msg("redis disabled (REDIS_URL not set)")
	}

	// YouTube lookups back URL resolution and the full-movies-only filter.
	var (
		res       server.Resolver
		durations service.DurationLookup
	)
	if cfg.YouTubeAPIKey != "" {
		yt, err := resolver.NewYouTubeLookup(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("youtube")
		}
		res = resolver.New(yt)
		durations = yt
		log.Info().Msg("channel resolution enabled (YouTube Data API)")
	} else {
		log.Warn().Msg("channel resolution disabled (YOUTUBE_API_KEY not set)")
	}

	syncer := service.NewSyncer(appStore, locker, durations, service.SyncOptions{
		UserAgent:        cfg.UserAgent,
		Timeout:          cfg.Timeout,
		LockTTL:          cfg.SyncLockTTL,
		MovieMinDuration: cfg.MovieMinDuration,
	}, m, log.With().Str("component", "sync").Logger())

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps := server.Deps{
		Resolver: res,
		Syncer:   syncer,
		Metrics:  m,
		Logger:   log.With().Str("component", "http").Logger(),
	}
	if queue != nil {
		deps.Queue = queue
		go runSyncWorker(ctx, queue, syncer, log.With().Str("component", "worker").Logger())
	}

	srv := server.New(appStore, cfg, deps)
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}

// migrationsDir finds migrations/ in the working directory or next to the binary.
func migrationsDir() string {
	dir, err := filepath.Abs("migrations")
	if err != nil {
		dir = "migrations"
	}
	if _, err := os.Stat(dir); err != nil {
		if exe, e := os.Executable(); e == nil {
			dir = filepath.Join(filepath.Dir(exe), "migrations")
		}
	}
	return dir
}

// runSyncWorker drains the Redis sync queue until ctx is cancelled.
// Jobs for a channel that is already syncing are dropped; that sync
// picks up the same feed.
func runSyncWorker(ctx context.Context, q *cache.RedisQueue, syncer *service.Syncer, log zerolog.Logger) {
	log.Info().Msg("sync worker started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sync worker stopping")
			return
		default:
		}

		job, err := q.Next(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Error().Err(err).Msg("dequeue")
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Debug().Str("id", job.ChannelRef).Time("enqueued_at", job.EnqueuedAt).Msg("processing sync job")
		if _, err := syncer.Sync(ctx, job.ChannelRef); err != nil {
			if errors.Is(err, service.ErrSyncInProgress) {
				log.Debug().Str("id", job.ChannelRef).Msg("sync already running, job dropped")
				continue
			}
			log.Warn().Err(err).Str("id", job.ChannelRef).Msg("queued sync failed")
		}
	}
}
