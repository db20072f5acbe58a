package main

import (
	"context"
	"net/http"
	"time"

	"github.com/diewo77/go-crm/auth"
	"github.com/diewo77/go-crm/i18n"
	"github.com/diewo77/go-crm/internal/handlers"
	"github.com/diewo77/go-crm/internal/logging"
	"github.com/rs/zerolog"
)

// App is the root HTTP handler: routes plus the global middleware chain.
type App struct {
	handler   http.Handler
	routerCfg *handlers.RouterConfig
}

// NewApp wraps the API routes with request logging, panic recovery,
// language detection and session parsing, in that order.
func NewApp(routerCfg *handlers.RouterConfig, logger zerolog.Logger) *App {
	var h http.Handler = routerCfg.Routes()
	h = auth.Middleware(h)
	h = i18n.Middleware(h)
	h = logging.Recover(h)
	h = logging.Middleware(logger)(h)
	return &App{handler: h, routerCfg: routerCfg}
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.handler.ServeHTTP(w, r)
}

// runOverdueWorker flags unpaid invoices past their due date until ctx ends.
func (a *App) runOverdueWorker(ctx context.Context, every time.Duration, logger zerolog.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		n, err := a.routerCfg.PaymentService.RefreshOverdue(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error().Err(err).Msg("refresh overdue invoices")
		case n > 0:
			logger.Info().Int("invoices", n).Msg("invoices marked overdue")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
