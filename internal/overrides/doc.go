// Package overrides copies the static override tree shipped with a package onto
// the install root and then discards it.
package overrides
