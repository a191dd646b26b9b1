package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	goversion "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"

	"github.com/vaporvee/boundless-server/internal/version"
)

// Config holds the bootstrap settings for one server installation.
type Config struct {
	// InstallRoot is the directory the server is installed into.
	InstallRoot string `yaml:"install_root"`
	// Registry describes where the package release is looked up.
	Registry Registry `yaml:"registry"`
	// Channel is the release channel to pick from the registry (release, beta, alpha).
	Channel string `yaml:"channel"`
	// Loader describes the mod loader installer and the server launch files it produces.
	Loader Loader `yaml:"loader"`
	// Exclusions lists manifest path prefixes that are never downloaded.
	Exclusions []string `yaml:"exclusions"`
	// MaxAttempts bounds download attempts per manifest file.
	MaxAttempts int `yaml:"max_attempts"`
	// Timeout is the per-attempt network timeout.
	Timeout time.Duration `yaml:"timeout"`
	// Java is the Java executable used for the installer and the server.
	Java string `yaml:"java"`
	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`
}

// Registry holds the package registry coordinates.
type Registry struct {
	// URL is the registry API base URL.
	URL string `yaml:"url"`
	// Project is the package slug or identifier.
	Project string `yaml:"project"`
	// UserAgent is sent with registry requests.
	UserAgent string `yaml:"user_agent"`
}

// Loader holds the mod loader installer settings.
type Loader struct {
	// Version is the installer version downloaded on first sync.
	Version string `yaml:"version"`
	// ServerVersion selects the libraries folder holding the launch argument files.
	ServerVersion string `yaml:"server_version"`
	// InstallerURL is a template where {version} is replaced by Version.
	InstallerURL string `yaml:"installer_url"`
	// LogLevel filters installer output; empty inherits the global level.
	LogLevel string `yaml:"log_level,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for bootstrap settings.
	DefaultConfigFilename = "boundless-server.yaml"

	// DefaultRegistryURL is the public registry API.
	DefaultRegistryURL = "https://api.modrinth.com/v2"

	// DefaultProject is the package installed when none is configured.
	DefaultProject = "boundless"

	// DefaultChannel is the release channel used when none is configured.
	DefaultChannel = "release"

	// DefaultLoaderVersion is the installer version.
	DefaultLoaderVersion = "21.1.119"

	// DefaultServerVersion is the version whose argument files launch the server.
	DefaultServerVersion = "21.1.62"

	// DefaultInstallerURL is the installer download template.
	DefaultInstallerURL = "https://maven.neoforged.net/releases/net/neoforged/neoforge/{version}/neoforge-{version}-installer.jar"

	// DefaultMaxAttempts is the number of download attempts per file.
	DefaultMaxAttempts = 3

	// DefaultTimeout is the default per-attempt network timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultJava is the Java executable looked up in PATH.
	DefaultJava = "java"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// versionPlaceholder is replaced in InstallerURL.
	versionPlaceholder = "{version}"
)

// defaultExclusions are mods known to be client-only or broken on dedicated servers.
//
//nolint:gochecknoglobals // Read-only default list, copied on use.
var defaultExclusions = []string{
	"mods/Sounds",
	"mods/sodium-extra",
	"mods/watermedia",
	"mods/world-host",
	"mods/betterpingdisplay-fabric",
}

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errUnknownChannel is returned for channels the registry does not know.
	errUnknownChannel = errors.New("unknown release channel")
	// errProjectRequired is returned when the registry project is empty.
	errProjectRequired = errors.New("registry project must be provided")
	// errInvalidMaxAttempts is returned when MaxAttempts is negative.
	errInvalidMaxAttempts = errors.New("max attempts must be at least 1")
)

// Default returns a configuration with every field set to its default.
func Default() *Config {
	cfg := new(Config)

	// Validate only fills defaults here, it cannot fail on an empty config.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from the provided path and validates essential fields.
// A missing file at the default path yields the default configuration.
func Load(path string) (*Config, error) {
	isDefaultPath := path == "" || path == DefaultConfigFilename
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if isDefaultPath && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}

		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes Settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and formatting.
// Unset fields are filled with defaults.
//
//nolint:cyclop // Flat list of default assignments.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.InstallRoot == "" {
		settings.InstallRoot = "."
	}

	if settings.Registry.URL == "" {
		settings.Registry.URL = DefaultRegistryURL
	}

	if settings.Registry.Project == "" {
		settings.Registry.Project = DefaultProject
	}

	if settings.Registry.UserAgent == "" {
		settings.Registry.UserAgent = version.UserAgent()
	}

	if settings.Channel == "" {
		settings.Channel = DefaultChannel
	}

	if settings.Loader.Version == "" {
		settings.Loader.Version = DefaultLoaderVersion
	}

	if settings.Loader.ServerVersion == "" {
		settings.Loader.ServerVersion = DefaultServerVersion
	}

	if settings.Loader.InstallerURL == "" {
		settings.Loader.InstallerURL = DefaultInstallerURL
	}

	if settings.Exclusions == nil {
		settings.Exclusions = append([]string(nil), defaultExclusions...)
	}

	if settings.MaxAttempts == 0 {
		settings.MaxAttempts = DefaultMaxAttempts
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.Java == "" {
		settings.Java = DefaultJava
	}

	return check(settings)
}

// check validates values that have no sensible default.
func check(settings *Config) error {
	if strings.TrimSpace(settings.Registry.Project) == "" {
		return errProjectRequired
	}

	switch settings.Channel {
	case "release", "beta", "alpha":
	default:
		return fmt.Errorf("%q: %w", settings.Channel, errUnknownChannel)
	}

	if settings.MaxAttempts < 1 {
		return fmt.Errorf("%d: %w", settings.MaxAttempts, errInvalidMaxAttempts)
	}

	if _, err := url.ParseRequestURI(settings.Registry.URL); err != nil {
		return fmt.Errorf("invalid registry URL: %w", err)
	}

	if _, err := url.ParseRequestURI(settings.InstallerURL()); err != nil {
		return fmt.Errorf("invalid installer URL: %w", err)
	}

	if _, err := goversion.NewVersion(settings.Loader.Version); err != nil {
		return fmt.Errorf("invalid loader version: %w", err)
	}

	if _, err := goversion.NewVersion(settings.Loader.ServerVersion); err != nil {
		return fmt.Errorf("invalid server version: %w", err)
	}

	return nil
}

// InstallerURL renders the installer download URL for the configured loader version.
func (c *Config) InstallerURL() string {
	return strings.ReplaceAll(c.Loader.InstallerURL, versionPlaceholder, c.Loader.Version)
}
