package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nadmax/bidboard/internal/board"
	"github.com/nadmax/bidboard/internal/cache"
	"github.com/nadmax/bidboard/internal/config"
	"github.com/nadmax/bidboard/internal/job"
	"github.com/nadmax/bidboard/internal/queue"
	"github.com/nadmax/bidboard/internal/repository"
	"github.com/nadmax/bidboard/internal/shotgrid"
	"github.com/nadmax/bidboard/internal/worker"
	"github.com/nadmax/bidboard/internal/worker/handlers"
)

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
	if cfg.Redis.Addr == "" {
		log.Fatal("REDIS_ADDR is required")
	}

	q, err := queue.NewQueue(cfg.Redis.Addr)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := q.Close(); err != nil {
			log.Printf("failed to close worker queue: %v", err)
		}
	}()

	var source board.Source = shotgrid.NewClient(context.Background(), cfg.ShotGrid.ClientConfig())
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
	}

	b := board.New(source, board.Options{
		ProjectID: cfg.ShotGrid.ProjectID,
		Reference: cfg.Reference,
	})

	workerID := cfg.Worker.ID
	if workerID == "" {
		workerID = fmt.Sprintf("worker-%d", time.Now().Unix())
	}

	w := worker.NewWorker(workerID, q)
	if cfg.Worker.PollInterval > 0 {
		w.SetPollInterval(cfg.Worker.PollInterval)
	}
	if cfg.Worker.JobTimeout > 0 {
		w.SetJobTimeout(cfg.Worker.JobTimeout)
	}

	w.RegisterHandler(job.TypeExportSeries, handlers.NewSeriesExporter(b, cfg.Worker.ExportDir).Handle)

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

		if err := repo.EnsureSchema(context.Background()); err != nil {
			log.Fatal(err)
		}
		w.RegisterHandler(job.TypeSnapshot, handlers.NewSnapshotHandler(b, repo).Handle)
	} else {
		log.Printf("POSTGRES_DSN not set, %s jobs will fail", job.TypeSnapshot)
	}

	if cfg.SendGrid.APIKey != "" {
		mailer := handlers.NewReportMailer(b, cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromAddress)
		w.RegisterHandler(job.TypeSendReport, mailer.Handle)
	} else {
		log.Printf("SENDGRID_API_KEY not set, %s jobs will fail", job.TypeSendReport)
	}

	go w.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down worker...")
	w.Stop()
}
