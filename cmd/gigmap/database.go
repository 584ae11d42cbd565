package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gigmap/internal/database"
	"gigmap/internal/metrics"
)

const probeTimeout = 5 * time.Second

// openDatabase builds the pool and probes it once. An unreachable database is
// logged and tolerated; requests surface their own failures until it returns.
func openDatabase(ctx context.Context, cfg Config, logger zerolog.Logger) (*database.Pool, error) {
	pool, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	_ = pool.Probe(probeCtx)

	if err := metrics.RegisterDBStats(pool.DB(), cfg.Database.Name); err != nil {
		logger.Warn().Err(err).Msg("database stats collector not registered")
	}

	go pool.Watch(ctx, cfg.HealthInterval)

	return pool, nil
}
