// Package model holds the types shared across the planner, the dependency
// graph, the materialization engine, and the execution coordinator: the
// Operation the planner emits and the StepResult an executor returns.
package model

// OperationType identifies the kind of side effect an Operation performs.
type OperationType string

const (
	OpSourceDefinition OperationType = "source_definition"
	OpLoad             OperationType = "load"
	OpTransform        OperationType = "transform"
	OpExport           OperationType = "export"
)

// Mode is the materialization policy for a table write.
type Mode string

const (
	ModeNone        Mode = ""
	ModeReplace     Mode = "REPLACE"
	ModeAppend      Mode = "APPEND"
	ModeUpsert      Mode = "UPSERT"
	ModeMerge       Mode = "MERGE"
	ModeIncremental Mode = "INCREMENTAL"
)

// Operation is the planner's flat, JSON-serializable output record (spec
// §3). Internally the planner and coordinator work with it directly rather
// than a tagged sum, since every consumer (dag, materialize, executor) reads
// a handful of fields keyed off Type.
type Operation struct {
	ID   string        `json:"id"`
	Type OperationType `json:"type"`
	Name string        `json:"name,omitempty"`

	// Query carries the operation-typed payload: a SQL string for
	// transform/export, or structured connector params for
	// source_definition/load.
	Query any `json:"query"`

	DependsOn []string `json:"depends_on"`

	SourceConnectorType string `json:"source_connector_type,omitempty"`
	TargetTable         string `json:"target_table,omitempty"`
	SourceName          string `json:"source_name,omitempty"`
	Mode                Mode   `json:"mode,omitempty"`
	MergeKeys           []string `json:"merge_keys,omitempty"`
	TimeColumn          string   `json:"time_column,omitempty"`
	Lookback            string   `json:"lookback,omitempty"`
	IsReplace           bool     `json:"is_replace,omitempty"`

	// DestinationURI and ConnectorOptions are populated on export
	// operations.
	DestinationURI   string         `json:"destination_uri,omitempty"`
	ConnectorOptions map[string]any `json:"connector_options,omitempty"`
	ConnectorParams  map[string]any `json:"connector_params,omitempty"`
	IsFromProfile    bool           `json:"is_from_profile,omitempty"`
	ProfileConnector string         `json:"profile_connector_name,omitempty"`

	LineNumber int `json:"line_number,omitempty"`
}

// Plan is the planner's full output: a deterministic, ordered operation
// list for one (pipeline, cli_vars, profile_vars) triple.
type Plan struct {
	PipelineName string       `json:"pipeline_name"`
	Operations   []*Operation `json:"operations"`
}

// OperationCount returns len(Operations); `sqlflow compile` writes it as the
// compiled-plan artifact's redundant operation_count field (spec §6.3).
func (p *Plan) OperationCount() int {
	return len(p.Operations)
}

// ByID returns the operation with the given id, or nil.
func (p *Plan) ByID(id string) *Operation {
	for _, op := range p.Operations {
		if op.ID == id {
			return op
		}
	}
	return nil
}
