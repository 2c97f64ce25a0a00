package application

import (
	"context"
	"sync"
	"time"
)

// SpendReason records why a refresh family stopped being usable.
type SpendReason string

const (
	SpentRotated SpendReason = "rotated"
	SpentLogout  SpendReason = "logout"
)

// RevocationStore records spent refresh-token families and per-identity cut-offs.
// Entries only need to live until the refresh token they guard would have expired.
type RevocationStore interface {
	// MarkSpent atomically spends a family. When the family was already spent it reports
	// false together with the reason recorded by the first caller.
	MarkSpent(ctx context.Context, identityID, familyID string, reason SpendReason, expiresAt time.Time) (bool, SpendReason, error)
	IsSpent(ctx context.Context, identityID, familyID string) (bool, error)
	// RevokeIdentity invalidates every refresh token of the identity issued at or before at.
	RevokeIdentity(ctx context.Context, identityID string, at, expiresAt time.Time) error
	RevokedBefore(ctx context.Context, identityID string) (time.Time, bool, error)
	// Prune drops entries that expired before now and returns how many were removed.
	Prune(ctx context.Context, now time.Time) (int, error)
}

type spentFamily struct {
	reason    SpendReason
	expiresAt time.Time
}

type cutoff struct {
	at        time.Time
	expiresAt time.Time
}

// MemoryRevocationStore is the process-local RevocationStore.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	spent   map[string]map[string]spentFamily
	cutoffs map[string]cutoff
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		spent:   make(map[string]map[string]spentFamily),
		cutoffs: make(map[string]cutoff),
	}
}

func (s *MemoryRevocationStore) MarkSpent(_ context.Context, identityID, familyID string, reason SpendReason, expiresAt time.Time) (bool, SpendReason, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	families, ok := s.spent[identityID]
	if !ok {
		families = make(map[string]spentFamily)
		s.spent[identityID] = families
	}
	if prev, done := families[familyID]; done {
		return false, prev.reason, nil
	}
	families[familyID] = spentFamily{reason: reason, expiresAt: expiresAt}
	return true, reason, nil
}

func (s *MemoryRevocationStore) IsSpent(_ context.Context, identityID, familyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.spent[identityID][familyID]
	return ok, nil
}

func (s *MemoryRevocationStore) RevokeIdentity(_ context.Context, identityID string, at, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.cutoffs[identityID]; ok && cur.at.After(at) {
		return nil
	}
	s.cutoffs[identityID] = cutoff{at: at, expiresAt: expiresAt}
	return nil
}

func (s *MemoryRevocationStore) RevokedBefore(_ context.Context, identityID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cutoffs[identityID]
	return c.at, ok, nil
}

func (s *MemoryRevocationStore) Prune(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identityID, families := range s.spent {
		for familyID, f := range families {
			if f.expiresAt.Before(now) {
				delete(families, familyID)
				removed++
			}
		}
		if len(families) == 0 {
			delete(s.spent, identityID)
		}
	}
	for identityID, c := range s.cutoffs {
		if c.expiresAt.Before(now) {
			delete(s.cutoffs, identityID)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of tracked spent families.
func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, families := range s.spent {
		n += len(families)
	}
	return n
}
