// Package log provides a small leveled logging interface shared by every
// AgentMap core component (registries, bundle service, injection engine,
// graph runner, interaction handler).
//
// Components accept a Logger at construction time rather than reaching for
// a package global, so callers can wire a no-op logger in tests and a real
// one (backed by golog) in the façade. A package-level default is still
// available through SetDefaultLogger/GetDefaultLogger for the bootstrap
// path, where policy is "never abort application startup" even if a caller
// never bothered to configure logging explicitly.
package log
