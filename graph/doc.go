// Package graph implements the compiled execution substrate of an AgentMap
// bundle: a small state machine of named nodes connected by default,
// conditional (success/failure), and function-routed edges.
//
// It is deliberately narrower than a general workflow engine: execution
// visits exactly one node at a time, following the edge the current state
// resolves to, until it reaches the terminal End marker or a node raises an
// Interrupted error. There is no parallel fan-out within a single run;
// concurrency comes from running multiple compiled graphs side by side,
// which is the runner package's concern, not this one's.
package graph
