package domain

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	m "stagecheck.dev/pkg/stagecheck/internal/model"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(data)
}

// fixturesIn classifies relative names as if they lived under root.
func fixturesIn(root string, names ...string) []m.Fixture {
	fixtures := make([]m.Fixture, 0, len(names))

	for _, name := range names {
		fixture := ClassifyRelative(name)
		fixture.FullPath = m.Path(filepath.Join(root, filepath.FromSlash(name)))
		fixtures = append(fixtures, fixture)
	}

	return fixtures
}

func baseNames(fixtures []m.Fixture) []string {
	names := make([]string, 0, len(fixtures))
	for _, fixture := range fixtures {
		names = append(names, fixture.Name)
	}

	return names
}
