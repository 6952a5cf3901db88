package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadmax/bidboard/internal/api"
	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/cache"
	"github.com/nadmax/bidboard/internal/config"
	"github.com/nadmax/bidboard/internal/dashboard"
	"github.com/nadmax/bidboard/internal/queue"
	"github.com/nadmax/bidboard/internal/repository"
	"github.com/nadmax/bidboard/internal/shotgrid"
)

const metricsInterval = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(config.Path(*configPath))
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var source board.Source = shotgrid.NewClient(context.Background(), cfg.ShotGrid.ClientConfig())
	opts := api.Options{ProjectID: cfg.ShotGrid.ProjectID}

	if cfg.CacheEnabled() {
		c, err := cache.New(cfg.Redis.Addr, cfg.Redis.CacheTTL)
		if err != nil {
			log.Fatal(err)
		}

		defer func() {
			if err := c.Close(); err != nil {
				log.Printf("failed to close cache: %v", err)
			}
		}()

		source = cache.Wrap(source, c)
		opts.Cache = c
		log.Printf("Caching ShotGrid results in Redis at %s for %s", cfg.Redis.Addr, cfg.Redis.CacheTTL)
	}

	b := board.New(source, board.Options{
		ProjectID: cfg.ShotGrid.ProjectID,
		Reference: cfg.Reference,
	})

	if cfg.Redis.Addr != "" {
		q, err := queue.NewQueue(cfg.Redis.Addr)
		if err != nil {
			log.Fatal(err)
		}

		defer func() {
			if err := q.Close(); err != nil {
				log.Printf("failed to close server queue: %v", err)
			}
		}()

		opts.Queue = q
		go startMetricsCollector(ctx, q, metricsInterval)
		if cfg.Snapshots.Interval > 0 {
			go runSnapshotScheduler(ctx, b, q, cfg.Snapshots.Interval)
		}
	}

	if cfg.Postgres.DSN != "" {
		repo, err := repository.NewPostgresSnapshotRepository(cfg.Postgres.DSN)
		if err != nil {
			log.Fatal(err)
		}

		defer func() {
			if err := repo.Close(); err != nil {
				log.Printf("failed to close Postgres repository: %v", err)
			}
		}()

		if err := repo.EnsureSchema(ctx); err != nil {
			log.Fatal(err)
		}
		opts.Snapshots = repo
	}

	dash, err := dashboard.NewDashboard(b, cfg.Title)
	if err != nil {
		log.Fatal(err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewAPI(dash, opts),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("failed to shut down server: %v", err)
		}
	}()

	log.Printf("Server starting on :%s", cfg.Port)
	log.Printf("Serving ShotGrid project %d from %s", cfg.ShotGrid.ProjectID, cfg.ShotGrid.URL)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
