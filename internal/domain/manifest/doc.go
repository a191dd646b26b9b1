// Package manifest contains the package manifest model and the policy deciding
// which manifest files are materialized on a dedicated server.
//
// A Manifest is parsed once from the descriptor embedded in a package archive.
// Entry paths are validated so that no file can be placed outside the install
// root, and ShouldMaterialize applies the server-side inclusion rules together
// with operator supplied exclusion prefixes.
package manifest
