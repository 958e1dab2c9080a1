package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Store string `json:"store,omitempty"`
}

// Readyz reports ready once the store answers.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.StorePing != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.StorePing(ctx); err != nil {
				d.Logger.Warn("store not ready", logger.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Store: "unreachable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}
