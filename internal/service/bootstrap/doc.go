// Package bootstrap prepares a server install and launches it.
//
// A Synchronizer walks a fixed sequence of stages: fetch and run the loader
// installer, download and unpack the package archive, download the manifest
// files the server needs, merge overrides and persist the completion marker.
// Once the marker is set, later runs skip straight to launching the server.
package bootstrap
