// Package launcher wraps the external Java processes of a server install: the
// one-time loader installer and the long-running server itself.
//
// It also captures the arguments the bootstrapper was started with into the
// JVM argument file read by the server launch scripts.
package launcher
