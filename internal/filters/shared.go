package filters

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/MrSnakeDoc/bitscreen/internal/domain"
)

// Shared returns the list a peer asked for by share id. Only public and
// shared lists are served. Lists authored on this node have their cids
// replaced by their Keccak-256 digest so peers can match content without
// learning the identifiers.
func (s *Service) Shared(cryptID string) (*domain.FilterList, error) {
	f, err := s.discoverable(cryptID)
	if err != nil {
		return nil, err
	}

	out := *f
	out.CIDs = make([]domain.CidItem, len(f.CIDs))
	copy(out.CIDs, f.CIDs)
	if !f.Imported() {
		for i := range out.CIDs {
			out.CIDs[i].CID = HashCID(out.CIDs[i].CID)
		}
	}
	return &out, nil
}

// Version returns the lightweight freshness descriptor of a shared list.
func (s *Service) Version(cryptID string) (domain.VersionDescriptor, error) {
	f, err := s.discoverable(cryptID)
	if err != nil {
		return domain.VersionDescriptor{}, err
	}
	return domain.VersionDescriptor{CryptID: f.CryptID, LastUpdatedAt: f.LastUpdatedAt}, nil
}

func (s *Service) discoverable(cryptID string) (*domain.FilterList, error) {
	f, err := s.repo.ByCryptID(cryptID)
	if err != nil {
		return nil, err
	}
	if !f.Visibility.Discoverable() {
		return nil, fmt.Errorf("%w: shared list %s", domain.ErrNotFound, cryptID)
	}
	return f, nil
}

// HashCID returns the lowercase hex Keccak-256 digest of cid.
func HashCID(cid string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(cid))
	return hex.EncodeToString(h.Sum(nil))
}
