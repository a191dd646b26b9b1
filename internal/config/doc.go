// Package config defines the bootstrap settings and provides helpers to load,
// validate and save them in YAML format.
//
// The Config type holds the install root, the registry coordinates, the release
// channel, loader versions, exclusion prefixes and download retry settings.
package config
