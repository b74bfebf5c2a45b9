package policy

// Type names the four supported policies (spec §4.14).
type Type string

const (
	AllNodes      Type = "all_nodes"
	FinalNode     Type = "final_node"
	CriticalNodes Type = "critical_nodes"
	Custom        Type = "custom"
)

// Config is one policy's configuration. CriticalNodes applies only to
// CriticalNodes policies; CustomFunc names a function registered with a
// *FuncRegistry and applies only to Custom policies. CustomFunc mirrors the
// spec's "module.path.function" string reference — Go has no equivalent of
// loading a function by dotted path, so the string is instead a lookup key
// into a registry of functions registered by name at startup.
type Config struct {
	Type          Type
	CriticalNodes []string
	CustomFunc    string
}
