// Package planner implements the Planner (spec §4.2): it lowers a parsed
// pipeline AST into an ordered list of typed Operations with resolved
// dependencies, evaluated conditional branches, and validated references.
package planner

import (
	"fmt"
	"strconv"

	"github.com/sqlflow/sqlflow/internal/dsl"
	"github.com/sqlflow/sqlflow/internal/model"
	"github.com/sqlflow/sqlflow/internal/profile"
	"github.com/sqlflow/sqlflow/internal/variables"
	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

// IncludeLoader fetches the raw source of an included pipeline file.
type IncludeLoader func(path string) (string, error)

// Planner lowers an AST into a Plan using the given CLI and profile
// variable layers.
type Planner struct {
	CLIVars     map[string]any
	ProfileVars map[string]any
	EnvLookup   func(string) (string, bool)
	Includes    IncludeLoader
	Connectors  map[string]profile.ConnectorConfig
}

// New constructs a Planner. connectors is the active profile's named
// connector configs, used to resolve "SOURCE x FROM <name>" (spec §6.1);
// it may be nil when no profile was loaded or none of its connectors are
// referenced.
func New(cliVars, profileVars map[string]any, envLookup func(string) (string, bool), includes IncludeLoader, connectors map[string]profile.ConnectorConfig) *Planner {
	return &Planner{CLIVars: cliVars, ProfileVars: profileVars, EnvLookup: envLookup, Includes: includes, Connectors: connectors}
}

// Plan lowers pipeline into a deterministic, ordered Operation list.
func (pl *Planner) Plan(pipelineName string, pipeline *dsl.Pipeline) (*model.Plan, error) {
	expanded, err := pl.expandIncludes(pipeline.Steps, map[string]bool{})
	if err != nil {
		return nil, err
	}

	st := newLoweringState(pl.CLIVars, pl.ProfileVars, pl.EnvLookup, pl.Connectors)
	if err := st.lowerSteps(expanded); err != nil {
		return nil, err
	}

	if st.validation.HasIssues() {
		return nil, st.validation
	}

	return &model.Plan{PipelineName: pipelineName, Operations: st.ops}, nil
}

// expandIncludes replaces Include steps with the steps of the included
// pipeline, recursively, detecting cycles among include aliases (spec
// §4.2 point 2 — the planner's only responsibility for includes).
func (pl *Planner) expandIncludes(steps []dsl.Step, inProgress map[string]bool) ([]dsl.Step, error) {
	var out []dsl.Step
	for _, step := range steps {
		inc, ok := step.(*dsl.Include)
		if !ok {
			if block, isBlock := step.(*dsl.ConditionalBlock); isBlock {
				expandedBlock, err := pl.expandConditional(block, inProgress)
				if err != nil {
					return nil, err
				}
				out = append(out, expandedBlock)
				continue
			}
			out = append(out, step)
			continue
		}
		if inProgress[inc.Alias] {
			return nil, sqlflowerrors.NewDependencyError().WithCycle([]string{inc.Alias, inc.Alias})
		}
		if pl.Includes == nil {
			return nil, sqlflowerrors.NewCompilationError(inc.FilePath, fmt.Errorf("no include loader configured"))
		}
		src, err := pl.Includes(inc.FilePath)
		if err != nil {
			return nil, sqlflowerrors.NewCompilationError(inc.FilePath, err)
		}
		included, err := dsl.Parse(src)
		if err != nil {
			return nil, err
		}
		inProgress[inc.Alias] = true
		expanded, err := pl.expandIncludes(included.Steps, inProgress)
		if err != nil {
			return nil, err
		}
		inProgress[inc.Alias] = false
		out = append(out, expanded...)
	}
	return out, nil
}

func (pl *Planner) expandConditional(block *dsl.ConditionalBlock, inProgress map[string]bool) (*dsl.ConditionalBlock, error) {
	out := &dsl.ConditionalBlock{Branches: make([]dsl.Branch, len(block.Branches)), HasElse: block.HasElse}
	for i, branch := range block.Branches {
		steps, err := pl.expandIncludes(branch.Steps, inProgress)
		if err != nil {
			return nil, err
		}
		out.Branches[i] = dsl.Branch{Condition: branch.Condition, Steps: steps}
	}
	if block.HasElse {
		steps, err := pl.expandIncludes(block.ElseBranch, inProgress)
		if err != nil {
			return nil, err
		}
		out.ElseBranch = steps
	}
	return out, nil
}

// loweringState threads the resolver, allocated ids, and table-producer
// bookkeeping through one Plan call.
type loweringState struct {
	resolver       *variables.Resolver
	setVars        map[string]any
	ops            []*model.Operation
	slugCounts     map[string]int
	sourceHandles  map[string]string // source name -> op id
	tableProducers map[string]string // table name -> op id (latest)
	createdPlain   map[string]bool
	connectors     map[string]profile.ConnectorConfig
	validation     *sqlflowerrors.ValidationError
}

func newLoweringState(cliVars, profileVars map[string]any, envLookup func(string) (string, bool), connectors map[string]profile.ConnectorConfig) *loweringState {
	setVars := make(map[string]any)
	return &loweringState{
		resolver:       variables.NewResolver(cliVars, profileVars, setVars, envLookup),
		setVars:        setVars,
		slugCounts:     make(map[string]int),
		sourceHandles:  make(map[string]string),
		tableProducers: make(map[string]string),
		createdPlain:   make(map[string]bool),
		connectors:     connectors,
		validation:     sqlflowerrors.NewValidationError("planning failed"),
	}
}

func (st *loweringState) allocateID(kind, target string) string {
	base := kind + "_" + sanitizeSlug(target)
	n := st.slugCounts[base]
	st.slugCounts[base] = n + 1
	if n == 0 {
		return base
	}
	return base + "_" + strconv.Itoa(n+1)
}

func sanitizeSlug(s string) string {
	if s == "" {
		return "step"
	}
	return s
}

func (st *loweringState) lowerSteps(steps []dsl.Step) error {
	for _, step := range steps {
		if err := st.lowerStep(step); err != nil {
			return err
		}
	}
	return nil
}

func (st *loweringState) lowerStep(step dsl.Step) error {
	switch s := step.(type) {
	case *dsl.Set:
		value, outcomes := st.resolver.Substitute(s.VariableValue, variables.ContextText)
		st.recordOutcomes(outcomes, s.VariableName, "set_value", s.Line)
		st.setVars[s.VariableName] = value
		return nil
	case *dsl.SourceDefinition:
		return st.lowerSource(s)
	case *dsl.Load:
		return st.lowerLoad(s)
	case *dsl.SQLBlock:
		return st.lowerTransform(s)
	case *dsl.Export:
		return st.lowerExport(s)
	case *dsl.ConditionalBlock:
		return st.lowerConditional(s)
	default:
		return fmt.Errorf("planner: unhandled step type %T", step)
	}
}

func (st *loweringState) lowerConditional(block *dsl.ConditionalBlock) error {
	for _, branch := range block.Branches {
		rendered, outcomes := st.resolver.Substitute(branch.Condition, variables.ContextAST)
		st.recordOutcomes(outcomes, "", "condition", block.Line)
		ok, err := variables.EvaluateCondition(rendered)
		if err != nil {
			return sqlflowerrors.NewCompilationError(fmt.Sprintf("line %d", block.Line), err)
		}
		if ok {
			return st.lowerSteps(branch.Steps)
		}
	}
	if block.HasElse {
		return st.lowerSteps(block.ElseBranch)
	}
	return nil
}

func (st *loweringState) recordOutcomes(outcomes []variables.Outcome, field, kind string, line int) {
	for _, oc := range outcomes {
		if oc.Found {
			continue
		}
		st.validation.WithMissingVariables(oc.Name)
		loc := sqlflowerrors.ContextLocation{Field: field, Line: line}
		if field == "" {
			loc.Field = kind
		}
		st.validation.WithContext(loc)
	}
}

func (st *loweringState) lowerSource(s *dsl.SourceDefinition) error {
	id := st.allocateID("source", s.Name)

	connectorType := s.ConnectorType
	params := s.Params
	if s.IsFromProfile {
		cfg, ok := st.connectors[s.ProfileConnectorNm]
		if !ok {
			return sqlflowerrors.NewValidationError(
				fmt.Sprintf("SOURCE %s: no connector %q in the active profile", s.Name, s.ProfileConnectorNm))
		}
		connectorType = cfg.Type
		params = mergeParams(cfg.Params, s.Options)
	}

	op := &model.Operation{
		ID:                  id,
		Type:                model.OpSourceDefinition,
		Name:                s.Name,
		SourceConnectorType: connectorType,
		IsFromProfile:       s.IsFromProfile,
		ProfileConnector:    s.ProfileConnectorNm,
		ConnectorParams:     st.substituteMap(params, id),
		ConnectorOptions:    st.substituteMap(s.Options, id),
		LineNumber:          s.Line,
	}
	op.Query = op.ConnectorParams
	st.ops = append(st.ops, op)
	st.sourceHandles[s.Name] = id
	return nil
}

// mergeParams layers override on top of base, letting a SOURCE's own
// OPTIONS/PARAMS win over the profile connector's defaults for the same
// key, without mutating either map.
func mergeParams(base, override map[string]any) map[string]any {
	if len(base) == 0 {
		return override
	}
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func (st *loweringState) lowerLoad(s *dsl.Load) error {
	id := st.allocateID("load", s.TableName)
	var deps []string
	if srcID, ok := st.sourceHandles[s.SourceName]; ok {
		deps = append(deps, srcID)
	} else {
		st.validation.WithMissingTables(s.SourceName)
	}

	mode := model.Mode(s.Mode)
	if mode == model.ModeUpsert && len(s.UpsertKeys) == 0 {
		return sqlflowerrors.NewValidationError(fmt.Sprintf("LOAD %s: UPSERT mode requires KEY", s.TableName))
	}

	deps = st.withPriorProducer(deps, s.TableName)

	op := &model.Operation{
		ID:          id,
		Type:        model.OpLoad,
		Name:        s.TableName,
		TargetTable: s.TableName,
		SourceName:  s.SourceName,
		Mode:        mode,
		MergeKeys:   s.UpsertKeys,
		DependsOn:   deps,
		LineNumber:  s.Line,
	}
	op.Query = map[string]any{"source_name": s.SourceName, "mode": string(mode)}
	st.ops = append(st.ops, op)
	st.tableProducers[s.TableName] = id
	return nil
}

func (st *loweringState) lowerTransform(s *dsl.SQLBlock) error {
	if !s.IsReplace && st.createdPlain[s.TableName] {
		return sqlflowerrors.NewValidationError(fmt.Sprintf("table %q created more than once without OR REPLACE", s.TableName))
	}
	if !s.IsReplace {
		st.createdPlain[s.TableName] = true
	}

	mode := model.Mode(s.Mode)
	switch mode {
	case model.ModeMerge:
		if len(s.MergeKeys) == 0 {
			return sqlflowerrors.NewValidationError(fmt.Sprintf("CREATE TABLE %s: MERGE mode requires KEY", s.TableName))
		}
	case model.ModeIncremental:
		if s.TimeColumn == "" {
			return sqlflowerrors.NewValidationError(fmt.Sprintf("CREATE TABLE %s: INCREMENTAL mode requires BY", s.TableName))
		}
	}

	id := st.allocateID("transform", s.TableName)
	sql, outcomes := st.resolver.Substitute(s.SQLQuery, variables.ContextSQL)
	st.recordOutcomes(outcomes, "sql_query", "", s.Line)

	deps := st.dependenciesFromSQL(sql, id)
	for _, ref := range extractFromReferences(sql) {
		if _, ok := st.tableProducers[ref]; !ok {
			st.validation.WithMissingTables(ref)
		}
	}
	deps = st.withPriorProducer(deps, s.TableName)

	op := &model.Operation{
		ID:          id,
		Type:        model.OpTransform,
		Name:        s.TableName,
		TargetTable: s.TableName,
		Query:       sql,
		DependsOn:   deps,
		Mode:        mode,
		MergeKeys:   s.MergeKeys,
		TimeColumn:  s.TimeColumn,
		Lookback:    s.Lookback,
		IsReplace:   s.IsReplace,
		LineNumber:  s.Line,
	}
	st.ops = append(st.ops, op)
	st.tableProducers[s.TableName] = id
	return nil
}

func (st *loweringState) lowerExport(s *dsl.Export) error {
	sql, outcomes := st.resolver.Substitute(s.SQLQuery, variables.ContextSQL)
	st.recordOutcomes(outcomes, "sql_query", "", s.Line)
	dest, destOutcomes := st.resolver.Substitute(s.DestinationURI, variables.ContextText)
	st.recordOutcomes(destOutcomes, "destination_uri", "", s.Line)

	target := st.primaryReferencedTable(sql)
	id := st.allocateID("export", target)

	deps := st.dependenciesFromSQL(sql, id)
	for _, ref := range extractFromReferences(sql) {
		if _, ok := st.tableProducers[ref]; !ok {
			st.validation.WithMissingTables(ref)
		}
	}

	op := &model.Operation{
		ID:               id,
		Type:             model.OpExport,
		Query:            sql,
		DependsOn:        deps,
		DestinationURI:   dest,
		SourceConnectorType: s.ConnectorType,
		ConnectorOptions: st.substituteMap(s.Options, id),
		LineNumber:       s.Line,
	}
	st.ops = append(st.ops, op)
	return nil
}

// dependenciesFromSQL returns, in deterministic sorted order, the ids of
// every already-emitted producer whose table name appears as an
// identifier in sql.
func (st *loweringState) dependenciesFromSQL(sql, selfID string) []string {
	seen := make(map[string]bool)
	var deps []string
	for table, producerID := range st.tableProducers {
		if producerID == selfID {
			continue
		}
		if referencesIdentifier(sql, table) && !seen[producerID] {
			seen[producerID] = true
			deps = append(deps, producerID)
		}
	}
	sortStrings(deps)
	return deps
}

// withPriorProducer appends table's previous producer id to deps, if one
// exists and isn't already present. A transform or load that redefines a
// table (CREATE OR REPLACE, or a second LOAD into the same target) must be
// totally ordered after the write it replaces, even when its own SQL never
// references the table by name (spec §5).
func (st *loweringState) withPriorProducer(deps []string, table string) []string {
	prior, ok := st.tableProducers[table]
	if !ok {
		return deps
	}
	for _, d := range deps {
		if d == prior {
			return deps
		}
	}
	deps = append(deps, prior)
	sortStrings(deps)
	return deps
}

func (st *loweringState) primaryReferencedTable(sql string) string {
	for _, ref := range extractFromReferences(sql) {
		if _, ok := st.tableProducers[ref]; ok {
			return ref
		}
	}
	return fmt.Sprintf("op%d", len(st.ops)+1)
}

func (st *loweringState) substituteMap(m map[string]any, selfID string) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		rendered, outcomes := st.resolver.Substitute(s, variables.ContextText)
		st.recordOutcomes(outcomes, k, "", 0)
		out[k] = rendered
	}
	return out
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
