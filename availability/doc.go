// Package availability implements the unified availability cache (C1): a
// categorized, file-backed store for the results of expensive checks —
// provider validation, dependency probes, environment discovery — so that
// repeated lookups of the same fact don't repeat the work that produced it.
//
// The cache is keyed two levels deep, category then key, and is invalidated
// wholesale whenever the schema version or the environment fingerprint it
// was written under no longer matches the current process. Entries attached
// to a source file are additionally invalidated individually when that
// file's modification time drifts more than a few seconds from what was
// recorded, without discarding the rest of the cache.
//
// Cache satisfies registry.AvailabilityCache, so a *registry.FeatureRegistry
// can be backed by it directly. An alternate Redis-backed implementation is
// provided in redis.go for deployments that share a cache across processes.
package availability
