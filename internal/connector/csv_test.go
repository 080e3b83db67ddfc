package connector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempCSV(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCSVSourceReadsHeaderAndRows(t *testing.T) {
	t.Parallel()

	path := writeTempCSV(t, "id,name\n1,alice\n2,bob\n")
	src := NewCSVSource()
	require.NoError(t, src.Open(context.Background(), map[string]any{"path": path}))
	defer src.Close()

	var all []Row
	require.NoError(t, src.Rows(context.Background(), func(chunk []Row) error {
		all = append(all, chunk...)
		return nil
	}))

	require.Len(t, all, 2)
	require.Equal(t, "1", all[0]["id"])
	require.Equal(t, "alice", all[0]["name"])
	require.Equal(t, "bob", all[1]["name"])
}

func TestCSVSourceMissingPathErrors(t *testing.T) {
	t.Parallel()

	src := NewCSVSource()
	err := src.Open(context.Background(), map[string]any{})
	require.Error(t, err)
}

func TestCSVSourceOpenNonexistentFile(t *testing.T) {
	t.Parallel()

	src := NewCSVSource()
	err := src.Open(context.Background(), map[string]any{"path": "/nonexistent/x.csv"})
	require.Error(t, err)
}

func TestCSVDestinationWritesHeaderAndRows(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")

	dst := NewCSVDestination()
	rows := []Row{{"id": "1", "name": "alice"}}
	err := dst.Write(context.Background(), path, map[string]any{"header": true}, func(yield func(Row) bool) {
		for _, r := range rows {
			if !yield(r) {
				return
			}
		}
	})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "1")
	require.Contains(t, string(data), "alice")
}

func TestDefaultRegistryHasCSVAndPostgres(t *testing.T) {
	t.Parallel()

	reg := Default()
	_, ok := reg.NewSource("CSV")
	require.True(t, ok)
	_, ok = reg.NewDestination("CSV")
	require.True(t, ok)
	_, ok = reg.NewSource("POSTGRES")
	require.True(t, ok)
	_, ok = reg.NewSource("S3")
	require.False(t, ok)
}
