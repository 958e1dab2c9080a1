package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
)

// ListFilters serves GET /filters.
func ListFilters(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFrom(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		lists, err := d.Filters.List(page)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, lists)
	}
}

// SearchFilters serves GET /search-filters?search=.
func SearchFilters(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFrom(r)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		lists, err := d.Filters.Search(r.URL.Query().Get("search"), page)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, lists)
	}
}

// GetFilter serves GET /filters/{id}.
func GetFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		f, err := d.Filters.Get(id)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, f)
	}
}

// CreateFilter serves POST /filters.
func CreateFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.FilterList
		if err := decodeJSON(w, r, &f); err != nil {
			writeError(w, r, d, err)
			return
		}
		id, err := d.Filters.Create(r.Context(), &f)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, ID: id})
	}
}

// UpdateFilter serves PUT /filters.
func UpdateFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f domain.FilterList
		if err := decodeJSON(w, r, &f); err != nil {
			writeError(w, r, d, err)
			return
		}
		id, err := d.Filters.Update(r.Context(), &f)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true, ID: id})
	}
}

// DeleteFilter serves DELETE /filters/{id}.
func DeleteFilter(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		if err := d.Filters.Delete(r.Context(), id); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})
	}
}

type importResponse struct {
	Success bool `json:"success"`
	filters.ImportResult
}

// ImportCIDs serves POST /filters/{id}/cids/import. The body is a plain
// text CID batch.
func ImportCIDs(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := intParam(chi.URLParam(r, "id"), "id")
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		body := http.MaxBytesReader(w, r.Body, maxBatchBody)
		res, err := d.Filters.ImportCIDs(r.Context(), id, body)
		if err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, importResponse{Success: true, ImportResult: res})
	}
}

type moveRequest struct {
	FromID int    `json:"fromId"`
	ToID   int    `json:"toId"`
	CidID  string `json:"cidId"`
}

// MoveCID serves POST /filters/move.
func MoveCID(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req moveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, d, err)
			return
		}
		if err := d.Filters.MoveCID(r.Context(), req.FromID, req.ToID, req.CidID); err != nil {
			writeError(w, r, d, err)
			return
		}
		writeJSON(w, http.StatusOK, envelope{Success: true})
	}
}
