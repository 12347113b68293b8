package organization

import (
	"context"
	"sort"
	"sync"
	"time"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded organization store for unit tests and local
// development. Semantics mirror the PostgreSQL store.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[id.OrgID]*models.Organization
}

func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[id.OrgID]*models.Organization)}
}

func (s *InMemory) Create(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[org.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *InMemory) FindByIDAndOwner(_ context.Context, orgID id.OrgID, ownerID id.UserID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok || org.OwnerID != ownerID {
		return nil, sentinel.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *InMemory) ExistsByIDAndOwner(_ context.Context, orgID id.OrgID, ownerID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	return ok && org.OwnerID == ownerID, nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.UserID, offset, limit int) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var owned []*models.Organization
	for _, org := range s.orgs {
		if org.OwnerID == ownerID {
			cp := *org
			owned = append(owned, &cp)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if offset >= len(owned) {
		return nil, nil
	}
	end := offset + limit
	if end > len(owned) {
		end = len(owned)
	}
	return owned[offset:end], nil
}

func (s *InMemory) CountByOwner(_ context.Context, ownerID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, org := range s.orgs {
		if org.OwnerID == ownerID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) UpdateName(_ context.Context, orgID id.OrgID, ownerID id.UserID, name string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok || org.OwnerID != ownerID {
		return sentinel.ErrNotFound
	}
	org.Name = name
	org.UpdatedAt = now
	return nil
}

func (s *InMemory) Delete(_ context.Context, orgID id.OrgID, ownerID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok || org.OwnerID != ownerID {
		return sentinel.ErrNotFound
	}
	delete(s.orgs, orgID)
	return nil
}

// Snapshot captures the store's state for the in-memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[id.OrgID]*models.Organization, len(s.orgs))
	for k, v := range s.orgs {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

// Restore resets the store to a previously captured snapshot.
func (s *InMemory) Restore(snap any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs = snap.(map[id.OrgID]*models.Organization)
}
