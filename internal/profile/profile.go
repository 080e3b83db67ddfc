// Package profile loads and validates the environment profile YAML files
// referenced by `sqlflow run --profile <path>` (spec §6.2): each file is one
// named environment carrying connector params, default variables, and
// observability overrides. The flag value is read as a file path; there is
// no lookup of a profile by name.
//
// Grounded on the teacher's config.ParseConfig (gopkg.in/yaml.v3 Unmarshal
// plus a shared go-playground/validator/v10 instance).
package profile

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	sqlflowerrors "github.com/sqlflow/sqlflow/pkg/errors"
)

// Profile is one named environment a pipeline can be compiled/run against.
type Profile struct {
	Name      string         `yaml:"name" validate:"required"`
	Variables map[string]any `yaml:"variables"`
	Connectors map[string]ConnectorConfig `yaml:"connectors"`
	SlowThresholdSeconds int  `yaml:"slow_threshold_seconds" validate:"omitempty,gte=0"`
}

// ConnectorConfig is one named connector's params, reusable across SOURCE
// statements written as `SOURCE <name> FROM "<connector>"`.
type ConnectorConfig struct {
	Type   string         `yaml:"type" validate:"required"`
	Params map[string]any `yaml:"params"`
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		validateInst = validator.New()
	})
	return validateInst
}

// Load reads and validates the profile YAML file at path.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, sqlflowerrors.NewCompilationError(path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, sqlflowerrors.NewCompilationError(path, fmt.Errorf("parsing profile: %w", err))
	}

	if err := validatorInstance().Struct(&p); err != nil {
		return nil, sqlflowerrors.NewValidationError(fmt.Sprintf("profile %s is invalid: %v", path, err))
	}

	return &p, nil
}

// VariablesAsAny returns the profile's variables map, ready for the
// planner's profileVars input; a nil profile yields an empty map.
func (p *Profile) VariablesAsAny() map[string]any {
	if p == nil {
		return nil
	}
	return p.Variables
}

// ConnectorsMap returns the profile's named connector configs, ready for
// the planner's profileConnectors input; a nil profile yields nil.
func (p *Profile) ConnectorsMap() map[string]ConnectorConfig {
	if p == nil {
		return nil
	}
	return p.Connectors
}
