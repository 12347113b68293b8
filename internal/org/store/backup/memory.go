package backup

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded backup store for unit tests and local
// development. Semantics mirror the PostgreSQL store.
type InMemory struct {
	mu      sync.RWMutex
	backups map[id.BackupID]*models.RecoveryBackup
}

func NewInMemory() *InMemory {
	return &InMemory{backups: make(map[id.BackupID]*models.RecoveryBackup)}
}

func (s *InMemory) Create(_ context.Context, b *models.RecoveryBackup) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.backups[b.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *b
	s.backups[b.ID] = &cp
	return nil
}

func (s *InMemory) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.RecoveryBackup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.RecoveryBackup
	for _, b := range s.backups {
		if b.OrganizationID == orgID {
			cp := *b
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) DeleteByOrg(_ context.Context, orgID id.OrgID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, b := range s.backups {
		if b.OrganizationID == orgID {
			delete(s.backups, k)
		}
	}
	return nil
}

// Snapshot captures the store's state for the in-memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[id.BackupID]*models.RecoveryBackup, len(s.backups))
	for k, v := range s.backups {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

// Restore resets the store to a previously captured snapshot.
func (s *InMemory) Restore(snap any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backups = snap.(map[id.BackupID]*models.RecoveryBackup)
}
