package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
)

// GetConfig serves GET /config.
func GetConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := d.Settings.Get()
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}

// PutConfig serves PUT /config: top-level keys of the body replace the
// stored ones, other keys are kept.
func PutConfig(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch map[string]json.RawMessage
		if err := decodeJSON(w, r, &patch); err != nil {
			writeError(w, r, d, err)
			return
		}
		cfg, err := d.Settings.Update(r.Context(), patch)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}
