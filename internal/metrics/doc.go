// Package metrics provides Prometheus instrumentation for the HTTP layer,
// the imaging providers, the result cache, and the history store. It is
// internal and should not be imported by external projects.
package metrics
