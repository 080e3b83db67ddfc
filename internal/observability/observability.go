// Package observability implements the Observability Manager (spec §4.7):
// scoped timers, per-step-type aggregates, typed alerts, and a system
// health check, backed by a structured rs/zerolog event log.
package observability

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sqlflow/sqlflow/internal/model"
)

// AlertType identifies the kind of condition an alert reports.
type AlertType string

const (
	AlertSlowExecution    AlertType = "slow_execution"
	AlertStepFailure      AlertType = "step_failure"
	AlertScopeFailure     AlertType = "scope_failure"
	AlertRecoverySuccess  AlertType = "recovery_success"
	AlertRecoveryFailure  AlertType = "recovery_failure"
)

// Severity is an alert's urgency.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one observed condition worth surfacing to an operator.
type Alert struct {
	Type      AlertType
	Severity  Severity
	Message   string
	StepID    string
	Timestamp time.Time
}

// HealthStatus summarizes overall plan execution health.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthWarning  HealthStatus = "warning"
	HealthDegraded HealthStatus = "degraded"
	HealthCritical HealthStatus = "critical"
)

type stepTypeAggregate struct {
	Count        int
	Failures     int
	TotalElapsed time.Duration
}

// Manager tracks execution metrics and alerts for one pipeline run,
// protected by a single mutex per spec §5's "one-mutex thread safety."
type Manager struct {
	mu sync.Mutex

	log *zerolog.Logger

	byType  map[model.OperationType]*stepTypeAggregate
	alerts  []Alert
	recoveries struct {
		attempts, successes int
	}

	slowThreshold time.Duration
}

// New returns a Manager logging structured events to log (a zerolog logger
// on os.Stderr if nil), flagging any step slower than slowThreshold (30s if
// not positive) as AlertSlowExecution.
func New(log *zerolog.Logger, slowThreshold time.Duration) *Manager {
	if log == nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log = &l
	}
	if slowThreshold <= 0 {
		slowThreshold = 30 * time.Second
	}
	return &Manager{
		log:           log,
		byType:        make(map[model.OperationType]*stepTypeAggregate),
		slowThreshold: slowThreshold,
	}
}

// MeasureScope runs fn, logging its elapsed time under name and recording a
// scope-level alert if fn returns an error.
func (m *Manager) MeasureScope(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	m.log.Debug().Str("scope", name).Dur("elapsed", elapsed).Err(err).Msg("scope measured")

	if err != nil {
		m.addAlert(Alert{Type: AlertScopeFailure, Severity: SeverityCritical, Message: name + ": " + err.Error(), Timestamp: time.Now()})
	}
	return err
}

// RecordStepStart logs the start of a step execution.
func (m *Manager) RecordStepStart(op *model.Operation) {
	m.log.Debug().Str("step_id", op.ID).Str("type", string(op.Type)).Msg("step started")
}

// RecordStepSuccess records a successful step and flags a slow-execution
// alert if it exceeded the configured threshold.
func (m *Manager) RecordStepSuccess(op *model.Operation, elapsed time.Duration) {
	m.mu.Lock()
	agg := m.aggregateFor(op.Type)
	agg.Count++
	agg.TotalElapsed += elapsed
	m.mu.Unlock()

	m.log.Info().Str("step_id", op.ID).Str("type", string(op.Type)).Dur("elapsed", elapsed).Msg("step succeeded")

	if elapsed > m.slowThreshold {
		m.addAlert(Alert{
			Type:      AlertSlowExecution,
			Severity:  SeverityWarning,
			Message:   "step exceeded slow-execution threshold",
			StepID:    op.ID,
			Timestamp: time.Now(),
		})
	}
}

// RecordStepFailure records a failed step and raises a step_failure alert.
func (m *Manager) RecordStepFailure(op *model.Operation, elapsed time.Duration, stepErr error) {
	m.mu.Lock()
	agg := m.aggregateFor(op.Type)
	agg.Count++
	agg.Failures++
	agg.TotalElapsed += elapsed
	m.mu.Unlock()

	m.log.Error().Str("step_id", op.ID).Str("type", string(op.Type)).Dur("elapsed", elapsed).Err(stepErr).Msg("step failed")

	m.addAlert(Alert{
		Type:      AlertStepFailure,
		Severity:  SeverityCritical,
		Message:   stepErr.Error(),
		StepID:    op.ID,
		Timestamp: time.Now(),
	})
}

// RecordRecoveryAttempt records the outcome of a retry/recovery attempt for
// a previously failed step.
func (m *Manager) RecordRecoveryAttempt(op *model.Operation, succeeded bool) {
	m.mu.Lock()
	m.recoveries.attempts++
	if succeeded {
		m.recoveries.successes++
	}
	m.mu.Unlock()

	alertType, severity := AlertRecoveryFailure, SeverityWarning
	if succeeded {
		alertType, severity = AlertRecoverySuccess, SeverityInfo
	}
	m.addAlert(Alert{Type: alertType, Severity: severity, StepID: op.ID, Timestamp: time.Now()})
}

// Alerts returns every alert raised so far, oldest first.
func (m *Manager) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// CheckSystemHealth reports overall health based on the aggregate
// step-failure rate observed so far, per the thresholds:
// >=50% failures -> critical, >=25% -> degraded, >=10% -> warning, else
// healthy.
func (m *Manager) CheckSystemHealth() HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total, failures int
	for _, agg := range m.byType {
		total += agg.Count
		failures += agg.Failures
	}
	if total == 0 {
		return HealthHealthy
	}

	rate := float64(failures) / float64(total)
	switch {
	case rate >= 0.5:
		return HealthCritical
	case rate >= 0.25:
		return HealthDegraded
	case rate >= 0.1:
		return HealthWarning
	default:
		return HealthHealthy
	}
}

func (m *Manager) aggregateFor(t model.OperationType) *stepTypeAggregate {
	agg, ok := m.byType[t]
	if !ok {
		agg = &stepTypeAggregate{}
		m.byType[t] = agg
	}
	return agg
}

func (m *Manager) addAlert(a Alert) {
	m.mu.Lock()
	m.alerts = append(m.alerts, a)
	m.mu.Unlock()
}
