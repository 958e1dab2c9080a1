package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bitscreen/internal/index"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

type componentStatus struct {
	OK       bool   `json:"ok"`
	Backend  string `json:"backend,omitempty"`
	Filters  *int   `json:"filters,omitempty"`
	Revision *int64 `json:"revision,omitempty"`
	Mode     string `json:"mode,omitempty"`
	Error    string `json:"error,omitempty"`
}

type syncStatus struct {
	Interval  string         `json:"interval"`
	Running   bool           `json:"running"`
	LastCycle string         `json:"last_cycle"`
	Lists     []index.Status `json:"lists"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Sync       syncStatus                 `json:"sync"`
}

// Infra reports store health and the sync state of imported lists.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storeStatus := checkStore(r.Context(), d)

		failing := 0
		lists := d.SyncIndex.All()
		for _, st := range lists {
			if st.LastError != "" {
				failing++
			}
		}
		syncComponent := componentStatus{OK: failing == 0, Mode: "polling"}
		if failing > 0 {
			syncComponent.Error = "some imported lists failed their last check"
		}

		lastCycle := "never"
		if t := d.SyncIndex.LastCycle(); !t.IsZero() {
			lastCycle = t.Format(time.RFC3339)
		}

		components := map[string]componentStatus{
			"store": storeStatus,
			"sync":  syncComponent,
		}

		writeJSON(w, http.StatusOK, infraResponse{
			Mode:       determineMode(components),
			Components: components,
			Sync: syncStatus{
				Interval:  d.SyncInterval.String(),
				Running:   d.Syncer != nil && d.Syncer.Running(),
				LastCycle: lastCycle,
				Lists:     lists,
			},
		})
	}
}

func determineMode(components map[string]componentStatus) string {
	if s, ok := components["store"]; ok && !s.OK {
		return "critical"
	}
	if s, ok := components["sync"]; ok && !s.OK {
		return "degraded"
	}
	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Database == nil {
		return componentStatus{OK: false, Error: "store not initialized"}
	}

	st := componentStatus{OK: true, Backend: d.Database.BackendName()}
	if n, err := d.Database.Count(store.TableFilters); err == nil {
		st.Filters = &n
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if d.StorePing != nil {
		if err := d.StorePing(ctx); err != nil {
			st.OK = false
			st.Error = "unreachable"
			return st
		}
	}
	if d.StoreRevision != nil {
		if rev, err := d.StoreRevision(ctx); err == nil {
			st.Revision = &rev
		}
	}
	return st
}
