package telemetry

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arklim/signup-iam/internal/core/port"
)

const metricsNamespace = "iam"

// AuthMetrics records auth core outcomes in Prometheus.
type AuthMetrics struct {
	logins         *prometheus.CounterVec
	signups        *prometheus.CounterVec
	approvals      *prometheus.CounterVec
	authorizations *prometheus.CounterVec
	activeUsers    prometheus.Gauge
}

// NewAuthMetrics registers the auth collectors on reg. Collectors already registered are reused.
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	logins, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "login_attempts_total",
		Help:      "Login attempts partitioned by outcome.",
	}, "outcome")
	if err != nil {
		return nil, err
	}

	signups, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "signups_total",
		Help:      "Signup requests partitioned by outcome.",
	}, "outcome")
	if err != nil {
		return nil, err
	}

	approvals, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "signup_approvals_total",
		Help:      "Signup approvals partitioned by outcome.",
	}, "outcome")
	if err != nil {
		return nil, err
	}

	authorizations, err := registerCounterVec(reg, prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "authorization_decisions_total",
		Help:      "Protected operation authorization decisions.",
	}, "operation", "outcome")
	if err != nil {
		return nil, err
	}

	activeUsers := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "active_users",
		Help:      "Validated users currently allowed to log in.",
	})
	if err := reg.Register(activeUsers); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register active users gauge: %w", err)
		}
		existing, ok := are.ExistingCollector.(prometheus.Gauge)
		if !ok {
			return nil, fmt.Errorf("active users collector has unexpected type %T", are.ExistingCollector)
		}
		activeUsers = existing
	}

	return &AuthMetrics{
		logins:         logins,
		signups:        signups,
		approvals:      approvals,
		authorizations: authorizations,
		activeUsers:    activeUsers,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, opts prometheus.CounterOpts, labels ...string) (*prometheus.CounterVec, error) {
	vec := prometheus.NewCounterVec(opts, labels)
	if err := reg.Register(vec); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register %s: %w", opts.Name, err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, fmt.Errorf("%s collector has unexpected type %T", opts.Name, are.ExistingCollector)
		}
		return existing, nil
	}
	return vec, nil
}

func (m *AuthMetrics) ObserveLogin(outcome string) {
	m.logins.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveSignup(outcome string) {
	m.signups.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveApproval(outcome string) {
	m.approvals.WithLabelValues(outcome).Inc()
}

func (m *AuthMetrics) ObserveAuthorization(operation, outcome string) {
	m.authorizations.WithLabelValues(operation, outcome).Inc()
}

func (m *AuthMetrics) AddActiveUsers(delta float64) {
	m.activeUsers.Add(delta)
}

// SetActiveUsers seeds the gauge, typically from a store count at startup.
func (m *AuthMetrics) SetActiveUsers(count float64) {
	m.activeUsers.Set(count)
}

var _ port.AuthMetrics = (*AuthMetrics)(nil)
