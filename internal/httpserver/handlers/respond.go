package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

const (
	maxJSONBody  = 8 << 20
	maxBatchBody = 32 << 20
)

// envelope is the body of every mutating endpoint.
type envelope struct {
	Success bool   `json:"success"`
	ID      int    `json:"_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs err and answers with a generic envelope. Only
// validation messages reach the client.
func writeError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		d.Logger.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err))
	} else {
		d.Logger.Debug("request rejected",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeJSON(w, status, envelope{Success: false, Error: msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound), store.IsUnknownEntry(err):
		return http.StatusNotFound, "not found"
	case errors.Is(err, domain.ErrPartialMove):
		return http.StatusConflict, domain.ErrPartialMove.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed body: %v", domain.ErrValidation, err)
	}
	return nil
}

// pageFrom parses the offset and limit query parameters.
func pageFrom(r *http.Request) (store.Page, error) {
	var page store.Page
	q := r.URL.Query()
	for name, dst := range map[string]*int{"offset": &page.Offset, "limit": &page.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return page, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrValidation, name)
		}
		*dst = n
	}
	return page, nil
}

// intParam parses a numeric URL parameter.
func intParam(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", domain.ErrValidation, name)
	}
	return n, nil
}
