// Package download fetches remote files into the install root with a bounded
// number of sequential attempts.
//
// Every attempt rewrites the destination from scratch and, for manifest files,
// verifies the result against the expected digests before reporting success.
package download
