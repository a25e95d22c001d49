package domain

import "time"

// Readiness states. The state store is the only dependency whose failure takes the builder
// out of rotation; exports and events only degrade it.
const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
	HealthStatusError    = "error"
)

// Names of the readiness checks the builder runs.
const (
	CheckStateStore    = "state_store"
	CheckExportsBucket = "exports_bucket"
	CheckEventsTopic   = "events_topic"
)

// SystemHealthCheck is the outcome of one readiness check.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

// WorstHealthStatus folds check results into one status. A failing state store check is
// always an error, whatever status the check reported.
func WorstHealthStatus(checks map[string]SystemHealthCheck) string {
	status := HealthStatusOK
	for name, check := range checks {
		switch {
		case check.Status == HealthStatusOK:
		case check.Status == HealthStatusError, name == CheckStateStore:
			return HealthStatusError
		default:
			status = HealthStatusDegraded
		}
	}
	return status
}
