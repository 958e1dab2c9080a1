package routes

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var registry []entry

// Register adds a named route group with optional group middlewares.
// Groups are registered in name order.
func Register(name string, reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{name: name, reg: reg, mws: mws})
}

// Names returns the registered group names in registration order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, e := range sorted() {
		names = append(names, e.name)
	}
	return names
}

func sorted() []entry {
	out := append([]entry(nil), registry...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// RegisterAll mounts every group on r. Called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, e := range sorted() {
		d.Logger.Debug("registering routes", logger.String("group", e.name))
		if len(e.mws) == 0 {
			e.reg(r, d)
			continue
		}
		e.reg(r.With(e.mws...), d)
	}
}
