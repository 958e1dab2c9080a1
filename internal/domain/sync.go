package domain

// SyncState is the position of an imported list in its refresh cycle.
type SyncState string

const (
	SyncCurrent    SyncState = "current"
	SyncRefreshing SyncState = "refreshing"
)

// NeedsRefresh decides whether an imported list must be fetched again.
//
// A version descriptor without a timestamp always triggers a refresh.
// Otherwise the origin must be strictly newer than a known local stamp;
// a local copy without a stamp is left alone.
func NeedsRefresh(local, remote *int64) bool {
	if remote == nil {
		return true
	}
	if local == nil {
		return false
	}
	return *remote > *local
}
