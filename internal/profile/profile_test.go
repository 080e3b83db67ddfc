package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProfile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadValidProfile(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `
name: staging
variables:
  env: staging
  region: us-east-1
connectors:
  warehouse:
    type: POSTGRES
    params:
      dsn: postgres://localhost/staging
slow_threshold_seconds: 10
`)

	p, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "staging", p.Name)
	require.Equal(t, "staging", p.Variables["env"])
	require.Equal(t, "POSTGRES", p.Connectors["warehouse"].Type)
}

func TestLoadMissingNameFailsValidation(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, `
variables:
  env: dev
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load("/nonexistent/profile.yaml")
	require.Error(t, err)
}

func TestLoadMalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeProfile(t, "name: [unterminated")
	_, err := Load(path)
	require.Error(t, err)
}
