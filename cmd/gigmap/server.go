package main

import (
	"net/http"

	"gigmap/internal/app/performances"
	"gigmap/internal/database"
	"gigmap/internal/httpapi"
	"gigmap/internal/store"
	"gigmap/internal/uploads"
)

func newHTTPHandler(cfg Config, pool *database.Pool, intake *uploads.Intake, dataStore *store.Store) http.Handler {
	performanceSvc := performances.New(dataStore, intake)

	return httpapi.New(performanceSvc, intake, pool, httpapi.Options{
		CORSAllowedOrigins: cfg.AllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}).Routes()
}
