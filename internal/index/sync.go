package index

import (
	"sort"
	"sync"
	"time"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
)

// Status is the sync state of one imported filter list.
type Status struct {
	FilterID      int              `json:"filterId"`
	Origin        string           `json:"origin"`
	State         domain.SyncState `json:"state"`
	LastChecked   time.Time        `json:"lastChecked,omitzero"`
	LastRefreshed time.Time        `json:"lastRefreshed,omitzero"`
	LastError     string           `json:"lastError,omitempty"`
}

// SyncIndex keeps the in-memory sync status of imported lists.
// A failed check leaves the state unchanged; the list is retried on
// the next cycle.
type SyncIndex struct {
	mu        sync.RWMutex
	statuses  map[int]*Status // filter id -> status
	lastCycle time.Time       // end of the last completed cycle
}

// NewSyncIndex creates an empty index.
func NewSyncIndex() *SyncIndex {
	return &SyncIndex{
		statuses: make(map[int]*Status),
	}
}

// entry returns the status of id, creating it as current. Caller holds mu.
func (idx *SyncIndex) entry(id int, origin string) *Status {
	st, ok := idx.statuses[id]
	if !ok {
		st = &Status{FilterID: id, State: domain.SyncCurrent}
		idx.statuses[id] = st
	}
	if origin != "" {
		st.Origin = origin
	}
	return st
}

// MarkChecked records a successful version check that found the list
// current.
func (idx *SyncIndex) MarkChecked(id int, origin string, at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	st := idx.entry(id, origin)
	st.State = domain.SyncCurrent
	st.LastChecked = at
	st.LastError = ""
}

// MarkRefreshing records that a newer version is being fetched.
func (idx *SyncIndex) MarkRefreshing(id int, origin string, at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	st := idx.entry(id, origin)
	st.State = domain.SyncRefreshing
	st.LastChecked = at
}

// MarkRefreshed records a completed re-import.
func (idx *SyncIndex) MarkRefreshed(id int, at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	st := idx.entry(id, "")
	st.State = domain.SyncCurrent
	st.LastRefreshed = at
	st.LastError = ""
}

// MarkFailed records a failed check or refresh. The list goes back to
// current and keeps its previous content.
func (idx *SyncIndex) MarkFailed(id int, origin string, at time.Time, err error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	st := idx.entry(id, origin)
	st.State = domain.SyncCurrent
	st.LastChecked = at
	if err != nil {
		st.LastError = err.Error()
	}
}

// Retain drops statuses of lists that are no longer imported.
func (idx *SyncIndex) Retain(ids []int) {
	keep := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		keep[id] = struct{}{}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id := range idx.statuses {
		if _, ok := keep[id]; !ok {
			delete(idx.statuses, id)
		}
	}
}

// Get returns a copy of the status of one list.
func (idx *SyncIndex) Get(id int) (Status, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	st, ok := idx.statuses[id]
	if !ok {
		return Status{}, false
	}
	return *st, true
}

// All returns copies of every status ordered by filter id.
func (idx *SyncIndex) All() []Status {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]Status, 0, len(idx.statuses))
	for _, st := range idx.statuses {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FilterID < out[j].FilterID })
	return out
}

// Count returns the number of tracked lists.
func (idx *SyncIndex) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.statuses)
}

// SetLastCycle records the end of a sync cycle.
func (idx *SyncIndex) SetLastCycle(t time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.lastCycle = t
}

// LastCycle returns the end of the last sync cycle.
func (idx *SyncIndex) LastCycle() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastCycle
}
