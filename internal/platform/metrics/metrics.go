package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Rejection reasons recorded on UsersRejected.
const (
	ReasonInvalidCPF   = "invalid_cpf"
	ReasonDuplicateCPF = "duplicate_cpf"
)

// Metrics holds the Prometheus collectors for the user registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	UsersCreated    prometheus.Counter
	UsersRejected   *prometheus.CounterVec
	UsersUpdated    prometheus.Counter
	UsersDeleted    prometheus.Counter
	UsersRegistered prometheus.Gauge
	CPFValidations  *prometheus.CounterVec
}

// New creates the registry metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer to expose them globally, or a fresh
// prometheus.NewRegistry() to keep tests isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "cadastro_users_created_total",
			Help: "Total number of users registered",
		}),
		UsersRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cadastro_users_rejected_total",
			Help: "Total number of registrations rejected, by reason",
		}, []string{"reason"}),
		UsersUpdated: f.NewCounter(prometheus.CounterOpts{
			Name: "cadastro_users_updated_total",
			Help: "Total number of user updates that matched a record",
		}),
		UsersDeleted: f.NewCounter(prometheus.CounterOpts{
			Name: "cadastro_users_deleted_total",
			Help: "Total number of user records deleted",
		}),
		UsersRegistered: f.NewGauge(prometheus.GaugeOpts{
			Name: "cadastro_users_registered",
			Help: "Number of users currently in the registry",
		}),
		CPFValidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cadastro_cpf_validations_total",
			Help: "Total number of CPF validations, by result",
		}, []string{"result"}),
	}
}

// IncrementUsersCreated records a successful registration.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// IncrementUsersRejected records a refused registration.
func (m *Metrics) IncrementUsersRejected(reason string) {
	if m == nil {
		return
	}
	m.UsersRejected.WithLabelValues(reason).Inc()
}

// IncrementUsersUpdated records an update that matched a record.
func (m *Metrics) IncrementUsersUpdated() {
	if m == nil {
		return
	}
	m.UsersUpdated.Inc()
}

// AddUsersDeleted records n deleted records.
func (m *Metrics) AddUsersDeleted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.UsersDeleted.Add(float64(n))
}

// SetUsersRegistered records the current registry size.
func (m *Metrics) SetUsersRegistered(n int) {
	if m == nil {
		return
	}
	m.UsersRegistered.Set(float64(n))
}

// ObserveCPFValidation records the outcome of a CPF check.
func (m *Metrics) ObserveCPFValidation(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.CPFValidations.WithLabelValues(result).Inc()
}
