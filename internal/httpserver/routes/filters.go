package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/mw"
)

func init() { Register("filters", registerFilters) }

func registerFilters(r chi.Router, d deps.Deps) {
	owner := r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))

	owner.Get("/filters", handlers.ListFilters(d))
	owner.Post("/filters", handlers.CreateFilter(d))
	owner.Put("/filters", handlers.UpdateFilter(d))
	owner.Get("/search-filters", handlers.SearchFilters(d))

	owner.Get("/filters/{id}", handlers.GetFilter(d))
	owner.Delete("/filters/{id}", handlers.DeleteFilter(d))
	owner.Post("/filters/{id}/cids/import", handlers.ImportCIDs(d))

	owner.Post("/filters/move", handlers.MoveCID(d))
	owner.Post("/filters/bulk/enabled", handlers.BulkSetEnabled(d))
	owner.Post("/filters/bulk/delete", handlers.BulkDelete(d))

	owner.Post("/filters/conflicts", handlers.DetectConflicts(d))
	owner.Post("/filters/conflicts/resolve", handlers.ResolveConflicts(d))

	owner.Get("/config", handlers.GetConfig(d))
	owner.Put("/config", handlers.PutConfig(d))
}
