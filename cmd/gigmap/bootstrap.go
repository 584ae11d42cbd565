package main

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gigmap/internal/store"
)

// bootstrapSchema creates the performances table when missing. Failures are
// logged only; the schema may be managed out of band.
func bootstrapSchema(ctx context.Context, dataStore *store.Store, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := dataStore.EnsureSchema(ctx); err != nil {
		logger.Error().Err(err).Msg("ensure performances schema")
		return
	}
	logger.Info().Msg("performances schema ready")
}
