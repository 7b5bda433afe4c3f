// Package factory builds imaging.Provider instances from upstream options.
// It imports the adapter sub-packages and applies the base-URL detection
// heuristics, breaking the import cycle that would occur if this logic lived
// in the providers package directly.
package factory
