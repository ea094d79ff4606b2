package main

import (
	"context"
	"log"
	"time"

	"github.com/nadmax/lockstats/internal/metrics"
)

type historyCounter interface {
	CountRecords(ctx context.Context) (int, error)
}

func startMetricsCollector(ctx context.Context, repo historyCounter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	updateHistoryMetrics(ctx, repo)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateHistoryMetrics(ctx, repo)
		}
	}
}

func updateHistoryMetrics(ctx context.Context, repo historyCounter) {
	total, err := repo.CountRecords(ctx)
	if err != nil {
		log.Printf("Failed to count lock history for metrics: %v", err)
		return
	}

	metrics.UpdateHistoryRows(total)
}
