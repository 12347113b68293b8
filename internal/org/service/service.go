//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"custodia/internal/org/metrics"
	"custodia/internal/org/models"
	id "custodia/pkg/domain"
	"custodia/pkg/platform/circuit"
)

type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	FindByIDAndOwner(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.Organization, error)
	ExistsByIDAndOwner(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (bool, error)
	ListByOwner(ctx context.Context, ownerID id.UserID, offset, limit int) ([]*models.Organization, error)
	CountByOwner(ctx context.Context, ownerID id.UserID) (int, error)
	UpdateName(ctx context.Context, orgID id.OrgID, ownerID id.UserID, name string, now time.Time) error
	Delete(ctx context.Context, orgID id.OrgID, ownerID id.UserID) error
}

type DeviceStore interface {
	Create(ctx context.Context, d *models.DeviceRegistration) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.DeviceRegistration, error)
	Revoke(ctx context.Context, deviceID id.DeviceID, orgID id.OrgID, ownerID id.UserID, now time.Time) error
	FindActiveForUnlock(ctx context.Context, orgID id.OrgID, ownerID id.UserID) (*models.DeviceRegistration, error)
	TouchLastUsed(ctx context.Context, deviceID id.DeviceID, now time.Time) error
	DeleteByOrg(ctx context.Context, orgID id.OrgID) error
}

type BackupStore interface {
	Create(ctx context.Context, b *models.RecoveryBackup) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.RecoveryBackup, error)
	DeleteByOrg(ctx context.Context, orgID id.OrgID) error
}

type AuditStore interface {
	Append(ctx context.Context, rec *models.DeviceRevocation) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.DeviceRevocation, error)
}

// TxRunner provides the all-or-nothing boundary for multi-store mutations.
// The PostgreSQL implementation carries a pgx transaction in the context;
// the in-memory one snapshots and restores the participating stores.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service orchestrates organization lifecycle, device custody and key
// release. It keeps orchestration out of handlers and domain logic thin.
type Service struct {
	orgs    OrganizationStore
	devices DeviceStore
	backups BackupStore
	audit   AuditStore
	tx      TxRunner
	access  *AccessChecker
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditStore(audit AuditStore) Option {
	return func(s *Service) {
		s.audit = audit
	}
}

// WithAccessCache enables the positive ownership cache on the access checker.
func WithAccessCache(cache AccessCache, ttl time.Duration) Option {
	return func(s *Service) {
		s.access.cache = cache
		s.access.ttl = ttl
		s.access.breaker = circuit.New("access-cache")
	}
}

// New constructs a Service.
func New(orgs OrganizationStore, devices DeviceStore, backups BackupStore, txr TxRunner, opts ...Option) *Service {
	s := &Service{
		orgs:    orgs,
		devices: devices,
		backups: backups,
		tx:      txr,
		tracer:  otel.Tracer("custodia/org"),
	}
	s.access = &AccessChecker{orgs: orgs}
	for _, opt := range opts {
		opt(s)
	}
	s.access.logger = s.logger
	return s
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
