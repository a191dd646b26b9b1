package overrides

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// TestMerge_OverrideWins replaces a downloaded mod with the override copy.
func TestMerge_OverrideWins(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "mods/example.jar", []byte("downloaded"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "mods/untouched.jar", []byte("keep"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "overrides/mods/example.jar", []byte("override"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "overrides/config/nested/server.toml", []byte("x = 1"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "overrides/resourcepacks/client.zip", []byte("client"), 0o644))

	require.NoError(t, Merge(context.Background(), fs, DefaultRoot, "."))

	got, err := afero.ReadFile(fs, "mods/example.jar")
	require.NoError(t, err)
	require.Equal(t, "override", string(got))

	got, err = afero.ReadFile(fs, "mods/untouched.jar")
	require.NoError(t, err)
	require.Equal(t, "keep", string(got))

	got, err = afero.ReadFile(fs, "config/nested/server.toml")
	require.NoError(t, err)
	require.Equal(t, "x = 1", string(got))

	exists, err := afero.Exists(fs, "resourcepacks/client.zip")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = afero.DirExists(fs, DefaultRoot)
	require.NoError(t, err)
	require.False(t, exists)
}

// TestMerge_NoOverrides is a no-op when nothing was shipped.
func TestMerge_NoOverrides(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "mods/a.jar", []byte("a"), 0o644))

	require.NoError(t, Merge(context.Background(), fs, DefaultRoot, "."))

	got, err := afero.ReadFile(fs, "mods/a.jar")
	require.NoError(t, err)
	require.Equal(t, "a", string(got))
}
