// Package errorpolicy implements the Error Handler (spec §4.8): the four
// variable/type-conversion error strategies and the accumulating Report a
// collect_report run produces.
package errorpolicy

import (
	"fmt"
)

// Strategy governs how a missing variable, invalid format, or type
// conversion failure is handled during planning.
type Strategy string

const (
	StrategyFailFast      Strategy = "fail_fast"
	StrategyWarnContinue  Strategy = "warn_continue"
	StrategyIgnore        Strategy = "ignore"
	StrategyCollectReport Strategy = "collect_report"
)

// Kind classifies one recorded problem.
type Kind string

const (
	KindMissingVariable  Kind = "missing_variable"
	KindInvalidFormat    Kind = "invalid_format"
	KindTypeConversion   Kind = "type_conversion"
)

// Issue is one recorded problem, associated with the variable or step that
// triggered it.
type Issue struct {
	Kind    Kind
	Subject string
	Message string
}

// Handler applies Strategy to each issue encountered during planning,
// either failing immediately, warning, ignoring, or accumulating into a
// Report.
type Handler struct {
	strategy Strategy
	report   *Report
}

// New returns a Handler for strategy. strategy defaults to warn_continue,
// per spec §4.8.
func New(strategy Strategy) *Handler {
	if strategy == "" {
		strategy = StrategyWarnContinue
	}
	return &Handler{strategy: strategy, report: &Report{}}
}

// Handle processes one issue according to the Handler's strategy. It
// returns an error only under fail_fast (to abort planning immediately);
// all other strategies return nil. warn_continue records the issue in the
// Report's Warnings and collect_report in its Errors; ignore only counts it
// in Total.
func (h *Handler) Handle(issue Issue) error {
	h.report.Total++

	switch h.strategy {
	case StrategyFailFast:
		h.report.Errors = append(h.report.Errors, issue)
		return fmt.Errorf("%s: %s", issue.Kind, issue.Message)

	case StrategyIgnore:
		return nil

	case StrategyCollectReport:
		h.report.Errors = append(h.report.Errors, issue)
		return nil

	case StrategyWarnContinue:
		fallthrough
	default:
		h.report.Warnings = append(h.report.Warnings, issue)
		return nil
	}
}

// RecordSuccess counts one successfully resolved variable/value toward the
// Report's success rate.
func (h *Handler) RecordSuccess() {
	h.report.Total++
	h.report.SuccessCount++
}

// Report returns the accumulated Report. Safe to call at any point; the
// success rate reflects issues and successes recorded so far.
func (h *Handler) Report() *Report {
	return h.report
}

// Report accumulates every issue and success recorded across a planning
// run (spec §4.8: "errors, warnings, success_count, total, context,
// success_rate, get_missing_variables()").
type Report struct {
	Errors       []Issue
	Warnings     []Issue
	SuccessCount int
	Total        int
	Context      map[string]any
}

// SuccessRate returns SuccessCount/Total, or 1.0 if nothing was recorded.
func (r *Report) SuccessRate() float64 {
	if r.Total == 0 {
		return 1.0
	}
	return float64(r.SuccessCount) / float64(r.Total)
}

// MissingVariables returns the subject of every KindMissingVariable issue
// recorded as an error, in encounter order.
func (r *Report) MissingVariables() []string {
	var names []string
	for _, issue := range r.Errors {
		if issue.Kind == KindMissingVariable {
			names = append(names, issue.Subject)
		}
	}
	return names
}
