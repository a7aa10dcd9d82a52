package static

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmbeddedAssets(t *testing.T) {
	for _, name := range []string{"dist/favicon.svg", "dist/main.css"} {
		b, err := fs.ReadFile(FS, name)
		require.NoError(t, err, name)
		require.NotEmpty(t, b, name)
	}

	matches, err := fs.Glob(FS, "dist/*.map")
	require.NoError(t, err)
	require.Empty(t, matches, "source maps must not ship")
}
