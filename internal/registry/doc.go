// Package registry queries the package registry for the newest version of a
// project on a release channel.
package registry
