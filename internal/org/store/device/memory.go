package device

import (
	"context"
	"sort"
	"sync"
	"time"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded device store for unit tests and local
// development. Semantics mirror the PostgreSQL store, including the scoped
// revocation filter and the monotonic last-used touch.
type InMemory struct {
	mu      sync.RWMutex
	devices map[id.DeviceID]*models.DeviceRegistration
}

func NewInMemory() *InMemory {
	return &InMemory{devices: make(map[id.DeviceID]*models.DeviceRegistration)}
}

func (s *InMemory) Create(_ context.Context, d *models.DeviceRegistration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.devices[d.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *d
	s.devices[d.ID] = &cp
	return nil
}

func (s *InMemory) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.DeviceRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DeviceRegistration
	for _, d := range s.devices {
		if d.OrganizationID == orgID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sortByRecency(out)
	return out, nil
}

func (s *InMemory) Revoke(_ context.Context, deviceID id.DeviceID, orgID id.OrgID, ownerID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok || d.OrganizationID != orgID || d.UserID != ownerID {
		return sentinel.ErrNotFound
	}
	if !d.IsActive() {
		return sentinel.ErrInvalidState
	}
	d.ApplyRevocation(now)
	return nil
}

func (s *InMemory) FindActiveForUnlock(_ context.Context, orgID id.OrgID, ownerID id.UserID) (*models.DeviceRegistration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var candidates []*models.DeviceRegistration
	for _, d := range s.devices {
		if d.OrganizationID == orgID && d.UserID == ownerID && d.IsActive() {
			cp := *d
			candidates = append(candidates, &cp)
		}
	}
	if len(candidates) == 0 {
		return nil, sentinel.ErrNotFound
	}
	sortByRecency(candidates)
	return candidates[0], nil
}

func (s *InMemory) TouchLastUsed(_ context.Context, deviceID id.DeviceID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// Monotonic: never move last_used backward.
	if d.LastUsed == nil || now.After(*d.LastUsed) {
		t := now
		d.LastUsed = &t
	}
	return nil
}

func (s *InMemory) DeleteByOrg(_ context.Context, orgID id.OrgID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, d := range s.devices {
		if d.OrganizationID == orgID {
			delete(s.devices, k)
		}
	}
	return nil
}

// Snapshot captures the store's state for the in-memory transaction runner.
func (s *InMemory) Snapshot() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[id.DeviceID]*models.DeviceRegistration, len(s.devices))
	for k, v := range s.devices {
		cp := *v
		snap[k] = &cp
	}
	return snap
}

// Restore resets the store to a previously captured snapshot.
func (s *InMemory) Restore(snap any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.devices = snap.(map[id.DeviceID]*models.DeviceRegistration)
}

func sortByRecency(devices []*models.DeviceRegistration) {
	sort.Slice(devices, func(i, j int) bool {
		a, b := devices[i], devices[j]
		switch {
		case a.LastUsed == nil && b.LastUsed == nil:
			return a.CreatedAt.After(b.CreatedAt)
		case a.LastUsed == nil:
			return false
		case b.LastUsed == nil:
			return true
		case !a.LastUsed.Equal(*b.LastUsed):
			return a.LastUsed.After(*b.LastUsed)
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
}
