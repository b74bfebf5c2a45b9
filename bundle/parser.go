package bundle

// Parser is the graph-spec parser boundary (C7): any representation that
// can produce a GraphSpec from a path is an acceptable input to the core.
// The default implementation, in bundle/csv, reads the tabular format
// documented in spec §4.7/§6; it is deliberately the only piece of this
// package that touches an external file format, so an alternative input
// representation can be substituted without touching C8/C9.
type Parser interface {
	Parse(path string) (*GraphSpec, error)
}
