package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-crm/httpx"
	"github.com/diewo77/go-crm/internal/cache"
	"github.com/diewo77/go-crm/internal/db"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db    *gorm.DB
	cache cache.Client
}

func NewHealthHandler(conn *gorm.DB, c cache.Client) *HealthHandler {
	return &HealthHandler{db: conn, cache: c}
}

// Healthz reports that the process is serving.
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pings the database and the cache.
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "cache": "ok"}
	ready := true
	if err := db.Ping(ctx, h.db); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness: database")
		checks["database"] = "unavailable"
		ready = false
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("readiness: cache")
			checks["cache"] = "unavailable"
			ready = false
		}
	}
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	httpx.JSON(w, status, checks)
}
