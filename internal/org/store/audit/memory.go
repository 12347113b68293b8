package audit

import (
	"context"
	"sort"
	"sync"

	"custodia/internal/org/models"
	id "custodia/pkg/domain"
)

// InMemory keeps the revocation trail in a slice for unit tests.
type InMemory struct {
	mu      sync.RWMutex
	records []*models.DeviceRevocation
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, rec *models.DeviceRevocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.records = append(s.records, &cp)
	return nil
}

func (s *InMemory) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.DeviceRevocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.DeviceRevocation
	for _, rec := range s.records {
		if rec.OrganizationID == orgID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}
