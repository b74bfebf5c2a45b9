// Package policy implements the execution policy (C14): given an
// execution's per-node outcomes and a policy configuration, it decides the
// single boolean "did this run succeed overall" the runner reports.
package policy
