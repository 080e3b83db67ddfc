// Package dsl implements a lexer and recursive-descent parser for the
// SQLFlow pipeline DSL (spec §6.1) and the AST types the planner consumes.
package dsl

// Step is the common interface implemented by every statement-level AST
// node. All carry Line for diagnostics (spec §3).
type Step interface {
	LineNumber() int
	stepNode()
}

type base struct {
	Line int
}

func (b base) LineNumber() int { return b.Line }
func (base) stepNode()         {}

// SourceDefinition declares a named external source; it moves no data.
type SourceDefinition struct {
	base
	Name               string
	ConnectorType      string
	Params             map[string]any
	IsFromProfile      bool
	ProfileConnectorNm string
	Options            map[string]any
}

// Load materializes a registered source into a table.
type Load struct {
	base
	TableName  string
	SourceName string
	Mode       string // "", REPLACE, APPEND, UPSERT
	UpsertKeys []string
}

// SQLBlock is CREATE [OR REPLACE] TABLE ... AS SELECT, with an optional
// materialization mode.
type SQLBlock struct {
	base
	TableName  string
	SQLQuery   string
	Mode       string // "", REPLACE, APPEND, MERGE, INCREMENTAL
	IsReplace  bool
	MergeKeys  []string
	TimeColumn string
	Lookback   string
}

// Export reads an ad-hoc SELECT and writes it via a destination connector.
type Export struct {
	base
	SQLQuery      string
	DestinationURI string
	ConnectorType string
	Options       map[string]any
}

// Set declares a pipeline-scope variable; VariableValue may itself contain
// ${...} references resolved at substitution time.
type Set struct {
	base
	VariableName  string
	VariableValue string
}

// Include is resolved before planning; the planner only checks for cycles
// among include aliases.
type Include struct {
	base
	FilePath string
	Alias    string
}

// Branch is one arm of a ConditionalBlock.
type Branch struct {
	Condition string
	Steps     []Step
}

// ConditionalBlock nests arbitrarily; exactly one branch (or the else arm)
// contributes its steps to the plan.
type ConditionalBlock struct {
	base
	Branches    []Branch
	ElseBranch  []Step
	HasElse     bool
}

// Pipeline is the parser's output: an ordered, immutable sequence of Step.
type Pipeline struct {
	Steps []Step
}
