package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Visibility scopes who can see and import a filter list.
type Visibility int

const (
	VisibilityNone Visibility = iota
	VisibilityPrivate
	VisibilityPublic
	VisibilityShared
	VisibilityException
)

func (v Visibility) String() string {
	switch v {
	case VisibilityNone:
		return "none"
	case VisibilityPrivate:
		return "private"
	case VisibilityPublic:
		return "public"
	case VisibilityShared:
		return "shared"
	case VisibilityException:
		return "exception"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	return v >= VisibilityNone && v <= VisibilityException
}

// Discoverable reports whether other providers may import the list.
func (v Visibility) Discoverable() bool {
	return v == VisibilityPublic || v == VisibilityShared
}

// CidItem is one content identifier inside a filter list.
type CidItem struct {
	// ID identifies the row inside its list. Assigned on save when empty.
	ID string `json:"id"`

	// CID is the content identifier. Required for saved items.
	CID string `json:"cid"`

	// RefURL optionally documents the complaint behind the entry.
	RefURL string `json:"refUrl,omitempty"`
}

// FilterList is one unit of shareable filtering policy.
//
// A list without Origin is authored locally. A list with Origin was
// imported from a peer and is refreshed by the import scheduler.
type FilterList struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is assigned by the store on insert and never changes.
	ID int `json:"id"`

	// CryptID is the opaque share identifier used by peers.
	CryptID string `json:"_cryptId,omitempty"`

	// ─────────────────────────────
	// Description
	// ─────────────────────────────

	Name        string     `json:"name"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`

	// Override marks an exception list: its CIDs negate filtering.
	Override bool `json:"override"`

	// Enabled tells whether the list is actively applied.
	Enabled bool `json:"enabled"`

	// ─────────────────────────────
	// Provenance
	// ─────────────────────────────

	// Origin is the canonical endpoint of an imported list.
	Origin string `json:"origin,omitempty"`

	// LastUpdatedAt is the epoch-millisecond stamp of the last content change.
	LastUpdatedAt *int64 `json:"_lastUpdatedAt,omitempty"`

	// ─────────────────────────────
	// Content
	// ─────────────────────────────

	CIDs []CidItem `json:"cids"`
}

// Imported reports whether the list was fetched from a peer.
func (f *FilterList) Imported() bool {
	return strings.TrimSpace(f.Origin) != ""
}

// Normalize trims text fields, derives the override flag from the
// visibility and assigns ids to CID rows that lack one.
func (f *FilterList) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	f.Origin = strings.TrimSpace(f.Origin)

	if f.Visibility == VisibilityException {
		f.Override = true
	}

	if f.CIDs == nil {
		f.CIDs = []CidItem{}
	}
	for i := range f.CIDs {
		f.CIDs[i].CID = strings.TrimSpace(f.CIDs[i].CID)
		f.CIDs[i].RefURL = strings.TrimSpace(f.CIDs[i].RefURL)
		if f.CIDs[i].ID == "" {
			f.CIDs[i].ID = NewItemID()
		}
	}
}

// Validate checks the invariants every persisted filter list must hold.
func (f *FilterList) Validate() error {
	if !f.Visibility.Valid() {
		return fmt.Errorf("%w: unknown visibility %d", ErrValidation, int(f.Visibility))
	}
	if f.Override && f.Visibility != VisibilityException {
		return fmt.Errorf("%w: override is only allowed on exception lists", ErrValidation)
	}
	if f.Origin != "" && !isHTTPURL(f.Origin) {
		return fmt.Errorf("%w: origin must be an absolute http(s) url", ErrValidation)
	}
	for i, item := range f.CIDs {
		if item.CID == "" {
			return fmt.Errorf("%w: cid at position %d is empty", ErrValidation, i)
		}
		if item.RefURL != "" {
			if _, err := url.ParseRequestURI(item.RefURL); err != nil {
				return fmt.Errorf("%w: refUrl of %s is not a url", ErrValidation, item.CID)
			}
		}
	}
	return nil
}

// Touch stamps the list as changed now.
func (f *FilterList) Touch(now time.Time) {
	ms := now.UnixMilli()
	f.LastUpdatedAt = &ms
}

// HasCID reports whether the list already holds the given cid value.
func (f *FilterList) HasCID(cid string) bool {
	for _, item := range f.CIDs {
		if item.CID == cid {
			return true
		}
	}
	return false
}

// RemoveItem drops the CID row with the given id. It returns false when
// the row is not part of the list.
func (f *FilterList) RemoveItem(itemID string) (CidItem, bool) {
	for i, item := range f.CIDs {
		if item.ID == itemID {
			f.CIDs = append(f.CIDs[:i:i], f.CIDs[i+1:]...)
			return item, true
		}
	}
	return CidItem{}, false
}

// FindItem returns the CID row with the given id.
func (f *FilterList) FindItem(itemID string) (CidItem, bool) {
	for _, item := range f.CIDs {
		if item.ID == itemID {
			return item, true
		}
	}
	return CidItem{}, false
}

// DecodeFilterList parses and validates a raw JSON record.
func DecodeFilterList(data []byte) (*FilterList, error) {
	var f FilterList
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: malformed filter list: %v", ErrValidation, err)
	}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// NewCryptID returns a fresh share identifier.
func NewCryptID() string {
	return uuid.NewString()
}

// NewItemID returns a fresh CID row identifier.
func NewItemID() string {
	return uuid.NewString()
}

// VersionDescriptor is the lightweight payload served at {origin}/version.
type VersionDescriptor struct {
	CryptID       string `json:"_cryptId"`
	LastUpdatedAt *int64 `json:"_lastUpdatedAt,omitempty"`
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
