package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Artifact labels.
const (
	ArtifactDID          = "did"
	ArtifactCredential   = "credential"
	ArtifactPresentation = "presentation"
)

// Metrics provides observability for the identity engines.
// Tracks artifact creation counts, verification outcomes and anchoring latency.
type Metrics struct {
	DIDsCreated          prometheus.Counter
	CredentialsIssued    prometheus.Counter
	PresentationsCreated prometheus.Counter
	Verifications        *prometheus.CounterVec
	Anchoring            *prometheus.CounterVec
	AnchoringDuration    prometheus.Histogram
	StorageDuration      *prometheus.HistogramVec
}

// New creates a new Metrics instance registered on reg.
// A nil reg creates unregistered collectors, useful in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		DIDsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "identity_dids_created_total",
			Help: "Total number of DID documents created",
		}),
		CredentialsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "identity_credentials_issued_total",
			Help: "Total number of verifiable credentials issued",
		}),
		PresentationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "identity_presentations_created_total",
			Help: "Total number of verifiable presentations created",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_verifications_total",
			Help: "Total number of verifications by artifact and status",
		}, []string{"artifact", "status"}),
		Anchoring: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "identity_anchoring_total",
			Help: "Total number of on-chain anchoring attempts by outcome",
		}, []string{"outcome"}),
		AnchoringDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "identity_anchoring_duration_seconds",
			Help:    "Duration of on-chain anchoring including receipt wait",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StorageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "identity_storage_put_duration_seconds",
			Help:    "Duration of artifact persistence by artifact",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"artifact"}),
	}
}

// IncrementDIDCreated records a successful DID creation.
func (m *Metrics) IncrementDIDCreated() {
	if m == nil {
		return
	}
	m.DIDsCreated.Inc()
}

// IncrementCredentialIssued records a successful credential issuance.
func (m *Metrics) IncrementCredentialIssued() {
	if m == nil {
		return
	}
	m.CredentialsIssued.Inc()
}

// IncrementPresentationCreated records a successful presentation creation.
func (m *Metrics) IncrementPresentationCreated() {
	if m == nil {
		return
	}
	m.PresentationsCreated.Inc()
}

// ObserveVerification records a verification outcome.
func (m *Metrics) ObserveVerification(artifact, status string) {
	if m == nil {
		return
	}
	m.Verifications.WithLabelValues(artifact, status).Inc()
}

// ObserveAnchoring records an anchoring attempt.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAnchoring(start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.Anchoring.WithLabelValues(outcome).Inc()
	m.AnchoringDuration.Observe(time.Since(start).Seconds())
}

// ObserveStorage records the duration of a storage write.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStorage(artifact string, start time.Time) {
	if m == nil {
		return
	}
	m.StorageDuration.WithLabelValues(artifact).Observe(time.Since(start).Seconds())
}
