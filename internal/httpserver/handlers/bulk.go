package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
)

type bulkEnabledRequest struct {
	IDs     []int `json:"ids"`
	Enabled bool  `json:"enabled"`
}

type bulkDeleteRequest struct {
	IDs []int `json:"ids"`
}

type bulkResponse struct {
	Success bool                 `json:"success"`
	Results []filters.ItemResult `json:"results"`
	Error   string               `json:"error,omitempty"`
}

func writeBulk(w http.ResponseWriter, res filters.BulkResult) {
	writeJSON(w, http.StatusOK, bulkResponse{
		Success: res.Failed() == 0,
		Results: res.Results,
		Error:   res.Message(),
	})
}

// BulkSetEnabled serves POST /filters/bulk/enabled.
func BulkSetEnabled(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkEnabledRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeBulk(w, d.Filters.BulkSetEnabled(r.Context(), req.IDs, req.Enabled))
	}
}

// BulkDelete serves POST /filters/bulk/delete.
func BulkDelete(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bulkDeleteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeBulk(w, d.Filters.BulkDelete(r.Context(), req.IDs))
	}
}
