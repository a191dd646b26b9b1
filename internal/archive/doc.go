// Package archive unpacks package archives into the install root.
//
// Every entry name is validated before anything is written, so an archive that
// tries to place a file outside the destination is rejected as a whole.
package archive
