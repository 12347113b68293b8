package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the organization module.
// Tracks lifecycle counts and the critical key-release path duration.
type Metrics struct {
	OrganizationsCreated prometheus.Counter
	OrganizationsRemoved prometheus.Counter
	DevicesRevoked       prometheus.Counter
	CreateOrgDuration    prometheus.Histogram
	KeyReleaseDuration   prometheus.Histogram
}

// New creates a new Metrics instance with all organization module metrics registered.
func New() *Metrics {
	return &Metrics{
		OrganizationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_organizations_created_total",
			Help: "Total number of organizations created",
		}),
		OrganizationsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_organizations_removed_total",
			Help: "Total number of organizations torn down",
		}),
		DevicesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_devices_revoked_total",
			Help: "Total number of device registrations revoked",
		}),
		CreateOrgDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_create_organization_duration_seconds",
			Help:    "Duration of the atomic organization creation transaction",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		KeyReleaseDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "custodia_key_release_duration_seconds",
			Help:    "Duration of key bundle release (vault unlock critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementOrganizationsCreated records a successful organization creation.
func (m *Metrics) IncrementOrganizationsCreated() {
	m.OrganizationsCreated.Inc()
}

// IncrementOrganizationsRemoved records a completed teardown.
func (m *Metrics) IncrementOrganizationsRemoved() {
	m.OrganizationsRemoved.Inc()
}

// IncrementDevicesRevoked records a successful device revocation.
func (m *Metrics) IncrementDevicesRevoked() {
	m.DevicesRevoked.Inc()
}

// ObserveCreateOrg records the duration of a CreateOrganization operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreateOrg(start time.Time) {
	m.CreateOrgDuration.Observe(time.Since(start).Seconds())
}

// ObserveKeyRelease records the duration of a key bundle release.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveKeyRelease(start time.Time) {
	m.KeyReleaseDuration.Observe(time.Since(start).Seconds())
}
