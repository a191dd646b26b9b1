// Package integrity verifies downloaded files against expected content digests.
//
// A file is read once and fed to every requested digest at the same time.
// Verification succeeds only when every supplied digest matches.
package integrity
