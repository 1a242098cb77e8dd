package port

// Outcome labels recorded by AuthMetrics.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

// AuthMetrics is the observability collaborator of the auth core.
type AuthMetrics interface {
	ObserveLogin(outcome string)
	ObserveSignup(outcome string)
	ObserveApproval(outcome string)
	ObserveAuthorization(operation, outcome string)
	AddActiveUsers(delta float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveLogin(string)                 {}
func (NopMetrics) ObserveSignup(string)                {}
func (NopMetrics) ObserveApproval(string)              {}
func (NopMetrics) ObserveAuthorization(string, string) {}
func (NopMetrics) AddActiveUsers(float64)              {}

var _ AuthMetrics = NopMetrics{}
