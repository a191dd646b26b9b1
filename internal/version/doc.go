// Package version exposes build metadata for boundless-server.
//
// Version, Commit and BuildTime are injected with -ldflags -X at build time.
// UserAgent derives the identifier sent to the package registry from them.
package version
