// Package store defines the pluggable persistence contract for
// paused-thread checkpoints: the resumable execution state an interrupted
// graph run leaves behind, keyed by thread id.
//
// The interaction handler persists its thread records in its own JSON
// store; a CheckpointStore is the optional second home for the checkpoint
// payload itself, so deployments can keep resumable state in SQLite
// (store/sqlite), PostgreSQL (store/postgres), or Redis (store/redis)
// instead of — or alongside — that file.
//
// StateCodec complements the stores: graph state is a plain key/value
// map, but custom agents may place typed struct values into it, and a
// raw JSON round-trip would flatten those to generic maps. Registering
// the concrete types under stable names lets a checkpoint backend
// restore them on load.
package store
