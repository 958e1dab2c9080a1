package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/mw"
)

func init() { Register("shared", registerShared) }

// Peer-facing routes carry no host restriction but are rate limited per IP.
func registerShared(r chi.Router, d deps.Deps) {
	limited := r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.SharedRateBurst,
		RefillPerIPPerMin: d.SharedRatePerMin,
		MaxEntries:        10000,
		TrustProxy:        d.TrustProxy,
		Logger:            d.Logger,
	}))

	limited.Get("/filters/shared/{cryptId}", handlers.SharedFilter(d))
	limited.Get("/filters/shared/{cryptId}/version", handlers.SharedVersion(d))
}
