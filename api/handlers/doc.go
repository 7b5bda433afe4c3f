// Package handlers implements the HTTP handlers of the service: imaging
// operations, session history, and health probes.
package handlers
