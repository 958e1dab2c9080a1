package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
)

// SharedFilter serves GET /filters/shared/{cryptId} to peers.
func SharedFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := d.Filters.Shared(chi.URLParam(r, "cryptId"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

// SharedVersion serves GET /filters/shared/{cryptId}/version to peers.
func SharedVersion(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Filters.Version(chi.URLParam(r, "cryptId"))
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
