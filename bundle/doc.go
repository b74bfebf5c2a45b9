// Package bundle turns a tabular graph specification into the cached,
// resolved GraphBundle the runner executes: content hashing (C6), the
// parser boundary (C7, with a default CSV implementation in bundle/csv),
// metadata analysis (C8), the orchestrating bundle service (C9), and the
// persistent bundle registry (C10).
//
// The pipeline is strictly one-directional: a tabular spec is hashed, the
// hash is checked against the registry, and only on a miss is the spec
// parsed and analyzed. A GraphBundle, once built, is read-only — nothing
// in this package or its callers mutates one after Service.GetOrCreateBundle
// returns it.
package bundle
