package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildProducesLevels(t *testing.T) {
	t.Parallel()

	g, err := Build(map[string][]string{
		"source_a":    {},
		"load_b":      {"source_a"},
		"transform_c": {"load_b"},
		"export_d":    {"transform_c"},
	})
	require.NoError(t, err)
	require.Equal(t, [][]string{{"source_a"}, {"load_b"}, {"transform_c"}, {"export_d"}}, g.Levels)
}

func TestBuildDetectsCycle(t *testing.T) {
	t.Parallel()

	_, err := Build(map[string][]string{
		"a": {"b"},
		"b": {"a"},
	})
	require.Error(t, err)
}

func TestBuildGroupsIndependentStepsInOneLevel(t *testing.T) {
	t.Parallel()

	g, err := Build(map[string][]string{
		"source_cs": {},
		"source_ss": {},
		"load_c":    {"source_cs"},
		"load_s":    {"source_ss"},
	})
	require.NoError(t, err)
	require.Len(t, g.Levels, 2)
	require.ElementsMatch(t, []string{"source_cs", "source_ss"}, g.Levels[0])
	require.ElementsMatch(t, []string{"load_c", "load_s"}, g.Levels[1])
}

func TestCriticalPath(t *testing.T) {
	t.Parallel()

	g, err := Build(map[string][]string{
		"a": {},
		"b": {"a"},
		"c": {"b"},
		"d": {"a"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, g.CriticalPath())
}

func TestReverseDependencies(t *testing.T) {
	t.Parallel()

	g, err := Build(map[string][]string{
		"a": {},
		"b": {"a"},
		"c": {"b"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"b", "c"}, g.ReverseDependencies("a"))
}

func TestExecutableSteps(t *testing.T) {
	t.Parallel()

	g, err := Build(map[string][]string{
		"a": {},
		"b": {"a"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, g.ExecutableSteps(map[string]bool{}))
	require.Equal(t, []string{"b"}, g.ExecutableSteps(map[string]bool{"a": true}))
}
