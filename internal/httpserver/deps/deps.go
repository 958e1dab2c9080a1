package deps

import (
	"context"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/filters"
	"github.com/MrSnakeDoc/bitscreen/internal/index"
	"github.com/MrSnakeDoc/bitscreen/internal/logger"
	"github.com/MrSnakeDoc/bitscreen/internal/settings"
	"github.com/MrSnakeDoc/bitscreen/internal/store"
)

// SyncRunner exposes the import syncer state to handlers.
type SyncRunner interface {
	Running() bool
}

type Deps struct {
	Logger           logger.Logger
	StartTime        time.Time
	Version          string
	Commit           string
	BuildDate        string
	GoVersion        string
	TimeNow          func() time.Time                         // for testing, defaults to time.Now
	AllowedHosts     []string                                 // Host headers allowed on the owner API
	AllowedCIDRS     []string                                 // IPs allowed on /readyz, /infra and /sync
	TrustProxy       bool                                     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins      []string                                 // origins allowed to call the API from a browser
	SharedRateBurst  int                                      // burst of the per-IP limit on peer routes
	SharedRatePerMin int                                      // refill of the per-IP limit on peer routes
	Filters          *filters.Service                         // filter list operations
	Settings         *settings.Service                        // config record and node config export
	Database         *store.Database                          // store document, for /infra
	StorePing        func(ctx context.Context) error          // nil when the backend needs no ping
	StoreRevision    func(ctx context.Context) (int64, error) // nil when the backend keeps no revision counter
	SyncIndex        *index.SyncIndex                         // per imported list sync state
	Syncer           SyncRunner                               // nil disables sync status on /infra
	SyncInterval     time.Duration                            // import scheduler cadence
	SyncTrigger      chan struct{}                            // Channel to trigger a manual sync cycle
}
