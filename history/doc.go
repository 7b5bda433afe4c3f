// Package history persists editing sessions as trees of image nodes. Each
// node points at its parent, so re-editing an older node forks a new branch
// while the original lineage stays intact.
//
// Two backends are provided: an in-memory store for development and tests,
// and a GORM store for durable single-node deployments.
package history
