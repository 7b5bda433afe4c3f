/*
Package providers holds the shared plumbing for the concrete upstream
adapters: endpoint-shape and auth-scheme detection from the configured base
URL, HTTP error mapping into imaging.Error, and retry-hint extraction for
429 responses.

The concrete adapters live in the gemini and openaicompat subpackages; the
factory package turns resolved options into a Provider.
*/
package providers
