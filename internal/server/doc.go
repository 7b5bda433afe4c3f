// Package server manages the lifecycle of an http.Server: listen, serve in
// the background, and shut down gracefully on signal or error.
package server
