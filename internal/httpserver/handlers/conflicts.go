package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
)

type detectRequest struct {
	CIDs     []string `json:"cids"`
	FilterID int      `json:"filterId"`
}

type detectResponse struct {
	Success   bool                `json:"success"`
	Conflicts []domain.Conflict   `json:"conflicts"`
	Kind      domain.ConflictKind `json:"kind"`
}

// DetectConflicts serves POST /filters/conflicts.
func DetectConflicts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req detectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		conflicts, kind, err := d.Filters.DetectConflicts(req.CIDs, req.FilterID)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, detectResponse{Success: true, Conflicts: conflicts, Kind: kind})
	}
}

type resolveRequest struct {
	Conflicts []domain.Conflict `json:"conflicts"`
}

type resolveResponse struct {
	Success bool `json:"success"`
	filters.Resolution
	Error string `json:"error,omitempty"`
}

// ResolveConflicts serves POST /filters/conflicts/resolve. Every
// conflict is handled independently; the pending set lists the ones the
// owner still has to deal with.
func ResolveConflicts(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resolveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		res := d.Filters.ResolveConflicts(r.Context(), req.Conflicts)

		out := resolveResponse{Success: len(res.Failed) == 0, Resolution: res}
		if !out.Success {
			out.Error = filters.PartialFailureMessage
		}
		writeJSON(w, http.StatusOK, out)
	}
}
