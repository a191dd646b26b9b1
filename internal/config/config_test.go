package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks defaults and format validations for Config.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Empty config gets defaults.
	settings := new(Config)

	require.NoError(t, Validate(settings))
	require.Equal(t, ".", settings.InstallRoot)
	require.Equal(t, DefaultChannel, settings.Channel)
	require.Equal(t, DefaultMaxAttempts, settings.MaxAttempts)
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Len(t, settings.Exclusions, len(defaultExclusions))

	// Unknown channel.
	settings = &Config{Channel: "nightly"}
	require.ErrorIs(t, Validate(settings), errUnknownChannel)

	// Negative attempts.
	settings = &Config{MaxAttempts: -1}
	require.ErrorIs(t, Validate(settings), errInvalidMaxAttempts)

	// Bad loader version.
	settings = &Config{Loader: Loader{Version: "not.a.version!"}}
	require.Error(t, Validate(settings))

	// Bad registry URL.
	settings = &Config{Registry: Registry{URL: "::nope"}}
	require.Error(t, Validate(settings))

	// Explicit empty exclusions stay empty.
	settings = &Config{Exclusions: []string{}}
	require.NoError(t, Validate(settings))
	require.Empty(t, settings.Exclusions)
}

// TestInstallerURL verifies the version placeholder is substituted.
func TestInstallerURL(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Loader: Loader{
			Version:      "21.1.5",
			InstallerURL: "https://maven.example/{version}/loader-{version}.jar",
		},
	}

	require.Equal(t, "https://maven.example/21.1.5/loader-21.1.5.jar", cfg.InstallerURL())
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		InstallRoot: "/srv/minecraft",
		Channel:     "beta",
		Exclusions:  []string{"mods/foo"},
		MaxAttempts: 5,
		Timeout:     10 * time.Second,
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.InstallRoot, loaded.InstallRoot)
	require.Equal(t, "beta", loaded.Channel)
	require.Equal(t, []string{"mods/foo"}, loaded.Exclusions)
	require.Equal(t, 5, loaded.MaxAttempts)
	require.Equal(t, 10*time.Second, loaded.Timeout)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

// TestLoad_MissingFile distinguishes the default path from an explicit one.
func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultProject, cfg.Registry.Project)

	_, err = Load("missing.yaml")
	require.ErrorIs(t, err, os.ErrNotExist)
}
