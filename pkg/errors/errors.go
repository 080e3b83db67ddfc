// Package errors implements the SQLFlow error taxonomy from spec.md §7: one
// type per category, each carrying the structured context a CLI needs to
// render an actionable message.
package errors

import (
	"fmt"
	"strings"
)

// PipelineNotFoundError indicates the requested pipeline file could not be
// discovered on any searched path.
type PipelineNotFoundError struct {
	Name       string
	Searched   []string
	Candidates []string
}

// NewPipelineNotFoundError constructs a PipelineNotFoundError.
func NewPipelineNotFoundError(name string, searched, candidates []string) error {
	return &PipelineNotFoundError{Name: name, Searched: searched, Candidates: candidates}
}

func (e *PipelineNotFoundError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("pipeline %q not found", e.Name)
	if len(e.Searched) > 0 {
		msg += fmt.Sprintf(" (searched: %s)", strings.Join(e.Searched, ", "))
	}
	if len(e.Candidates) > 0 {
		msg += fmt.Sprintf("; did you mean: %s?", strings.Join(e.Candidates, ", "))
	}
	return msg
}

// ProfileNotFoundError indicates the requested profile name is missing.
type ProfileNotFoundError struct {
	Name      string
	Available []string
}

// NewProfileNotFoundError constructs a ProfileNotFoundError.
func NewProfileNotFoundError(name string, available []string) error {
	return &ProfileNotFoundError{Name: name, Available: available}
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("profile %q not found", e.Name)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

// ContextLocation pinpoints where in a pipeline a validation issue occurred.
type ContextLocation struct {
	StepID string
	Field  string
	Line   int
}

func (l ContextLocation) String() string {
	if l.Line > 0 {
		return fmt.Sprintf("%s.%s:%d", l.StepID, l.Field, l.Line)
	}
	return fmt.Sprintf("%s.%s", l.StepID, l.Field)
}

// ValidationError aggregates planning-time validation failures.
type ValidationError struct {
	MissingVariables  []string
	MissingTables     []string
	InvalidReferences []string
	ContextLocations  []ContextLocation
	Message           string
}

// NewValidationError constructs an empty ValidationError with a summary
// message; use the With* methods to attach detail lists.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) WithMissingVariables(vars ...string) *ValidationError {
	e.MissingVariables = append(e.MissingVariables, vars...)
	return e
}

func (e *ValidationError) WithMissingTables(tables ...string) *ValidationError {
	e.MissingTables = append(e.MissingTables, tables...)
	return e
}

func (e *ValidationError) WithInvalidReferences(refs ...string) *ValidationError {
	e.InvalidReferences = append(e.InvalidReferences, refs...)
	return e
}

func (e *ValidationError) WithContext(loc ContextLocation) *ValidationError {
	e.ContextLocations = append(e.ContextLocations, loc)
	return e
}

// HasIssues reports whether any structured detail was recorded.
func (e *ValidationError) HasIssues() bool {
	if e == nil {
		return false
	}
	return len(e.MissingVariables) > 0 || len(e.MissingTables) > 0 || len(e.InvalidReferences) > 0
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	var parts []string
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if len(e.MissingVariables) > 0 {
		parts = append(parts, fmt.Sprintf("missing variables: %s", strings.Join(e.MissingVariables, ", ")))
	}
	if len(e.MissingTables) > 0 {
		parts = append(parts, fmt.Sprintf("missing tables: %s", strings.Join(e.MissingTables, ", ")))
	}
	if len(e.InvalidReferences) > 0 {
		parts = append(parts, fmt.Sprintf("invalid references: %s", strings.Join(e.InvalidReferences, ", ")))
	}
	if len(parts) == 0 {
		return "validation error"
	}
	return "validation error: " + strings.Join(parts, "; ")
}

// DependencyError aggregates DAG-level dependency failures.
type DependencyError struct {
	Cycles                  [][]string
	MissingDependencies     []string
	ConflictingDependencies []string
}

// NewDependencyError constructs an empty DependencyError.
func NewDependencyError() *DependencyError {
	return &DependencyError{}
}

func (e *DependencyError) WithCycle(path []string) *DependencyError {
	e.Cycles = append(e.Cycles, path)
	return e
}

func (e *DependencyError) WithMissingDependency(id string) *DependencyError {
	e.MissingDependencies = append(e.MissingDependencies, id)
	return e
}

func (e *DependencyError) Error() string {
	if e == nil {
		return ""
	}
	var parts []string
	for _, cycle := range e.Cycles {
		parts = append(parts, fmt.Sprintf("cycle: %s", strings.Join(cycle, " -> ")))
	}
	if len(e.MissingDependencies) > 0 {
		parts = append(parts, fmt.Sprintf("missing dependencies: %s", strings.Join(e.MissingDependencies, ", ")))
	}
	if len(e.ConflictingDependencies) > 0 {
		parts = append(parts, fmt.Sprintf("conflicting dependencies: %s", strings.Join(e.ConflictingDependencies, ", ")))
	}
	if len(parts) == 0 {
		return "dependency error"
	}
	return "dependency error: " + strings.Join(parts, "; ")
}

// StepBuildError reports failures while lowering one or more steps into
// operations.
type StepBuildError struct {
	FailedSteps map[string]string // step id -> reason
}

// NewStepBuildError constructs an empty StepBuildError.
func NewStepBuildError() *StepBuildError {
	return &StepBuildError{FailedSteps: make(map[string]string)}
}

func (e *StepBuildError) WithFailure(stepID, reason string) *StepBuildError {
	if e.FailedSteps == nil {
		e.FailedSteps = make(map[string]string)
	}
	e.FailedSteps[stepID] = reason
	return e
}

// HasFailures reports whether any step failure was recorded.
func (e *StepBuildError) HasFailures() bool {
	return e != nil && len(e.FailedSteps) > 0
}

func (e *StepBuildError) Error() string {
	if e == nil || len(e.FailedSteps) == 0 {
		return "step build error"
	}
	parts := make([]string, 0, len(e.FailedSteps))
	for id, reason := range e.FailedSteps {
		parts = append(parts, fmt.Sprintf("%s: %s", id, reason))
	}
	return "step build error: " + strings.Join(parts, "; ")
}

// VariableParsingError indicates the CLI --variables payload was malformed.
type VariableParsingError struct {
	Input string
	Err   error
}

// NewVariableParsingError constructs a VariableParsingError.
func NewVariableParsingError(input string, err error) error {
	return &VariableParsingError{Input: input, Err: err}
}

func (e *VariableParsingError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("failed to parse --variables %q: %v", e.Input, e.Err)
}

func (e *VariableParsingError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CompilationError is a catch-all for parser/planner failures that do not
// belong to a more specific category above.
type CompilationError struct {
	Path string
	Err  error
}

// NewCompilationError constructs a CompilationError.
func NewCompilationError(path string, err error) error {
	return &CompilationError{Path: path, Err: err}
}

func (e *CompilationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("compilation error in %s: %v", e.Path, e.Err)
}

func (e *CompilationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ExecutionError represents a runtime failure while executing one
// operation.
type ExecutionError struct {
	StepID string
	Hint   string
	Err    error
}

// NewExecutionError constructs an ExecutionError.
func NewExecutionError(stepID, hint string, err error) error {
	return &ExecutionError{StepID: stepID, Hint: hint, Err: err}
}

func (e *ExecutionError) Error() string {
	if e == nil {
		return ""
	}
	if e.Hint != "" {
		return fmt.Sprintf("execution error in step %s (%s): %v", e.StepID, e.Hint, e.Err)
	}
	return fmt.Sprintf("execution error in step %s: %v", e.StepID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConnectorError is an ExecutionError subtype flagged by executors to hint
// whether the failure is worth retrying.
type ConnectorError struct {
	*ExecutionError
	ConnectorType string
	Retryable     bool
}

// NewConnectorError constructs a ConnectorError wrapping an ExecutionError.
func NewConnectorError(stepID, connectorType string, retryable bool, err error) error {
	return &ConnectorError{
		ExecutionError: &ExecutionError{StepID: stepID, Hint: "connector:" + connectorType, Err: err},
		ConnectorType:  connectorType,
		Retryable:      retryable,
	}
}

func (e *ConnectorError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("connector error [%s] in step %s (retryable=%t): %v", e.ConnectorType, e.StepID, e.Retryable, e.Err)
}
