// Package cache provides a two-level result cache for deterministic imaging
// requests: an in-process LRU in front of an optional Redis tier. Only
// seeded requests are cacheable, since unseeded generation is intentionally
// non-deterministic.
package cache
