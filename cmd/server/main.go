package main

import (
	"context"
	"log"
	"net/http"

	"github.com/nadmax/lockstats/internal/api"
	"github.com/nadmax/lockstats/internal/config"
	"github.com/nadmax/lockstats/internal/repository"
	"github.com/nadmax/lockstats/internal/settings"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	repo, err := repository.NewPostgresLockHistoryRepository(cfg.PostgresDSN)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := repo.Close(); err != nil {
			log.Printf("failed to close lock history repository: %v", err)
		}
	}()

	if cfg.AutoMigrate {
		if err := repo.Migrate(); err != nil {
			log.Fatal(err)
		}
		log.Printf("Lock history schema is up to date")
	}

	store, err := settings.NewRedisStore(cfg.RedisAddr)
	if err != nil {
		log.Fatal(err)
	}

	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close settings store: %v", err)
		}
	}()

	if cfg.Threshold != "" {
		seeded, err := store.SetDefault(context.Background(), settings.Plugin, settings.ThresholdKey, cfg.Threshold)
		if err != nil {
			log.Fatal(err)
		}
		if seeded {
			log.Printf("Seeded %s/%s with %s", settings.Plugin, settings.ThresholdKey, cfg.Threshold)
		}
	}

	go startMetricsCollector(context.Background(), repo, cfg.MetricsInterval)

	apiHandler := api.NewAPI(repo, store, cfg.PageSize)

	log.Printf("Server starting on :%s", cfg.Port)
	log.Printf("Connected to Redis at %s", cfg.RedisAddr)

	if err := http.ListenAndServe(":"+cfg.Port, apiHandler); err != nil {
		log.Fatal(err)
	}
}
