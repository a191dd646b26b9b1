package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Product is the name reported in the version banner and the registry User-Agent.
const Product = "boundless-server"

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns the semantic version, falling back to the module version
// recorded by `go install` when nothing was injected.
func Short() string {
	if Version != "dev" {
		return Version
	}

	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return Version
	}

	return info.Main.Version
}

// Full returns a human-readable version string with commit, build time and toolchain.
func Full() string {
	return fmt.Sprintf("%s version: %s, commit: %s, built at: %s, %s %s/%s",
		Product, Short(), Commit, BuildTime, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// UserAgent identifies this build to remote services, e.g. "vaporvee/boundless-server/1.2.0".
func UserAgent() string {
	return "vaporvee/" + Product + "/" + Short()
}
