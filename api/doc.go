// Package api defines the request and response DTOs of the HTTP surface.
// Handlers live in the handlers sub-package.
package api
