// Package runner implements the graph runner (C15): it instantiates a
// bundle's node agents, injects their services, assembles and compiles the
// graph, invokes it, and evaluates the success policy over the result
// (spec §4.15).
package runner

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/agentmap/agentmap-core/bundle"
	"github.com/agentmap/agentmap-core/graph"
	"github.com/agentmap/agentmap-core/inject"
	"github.com/agentmap/agentmap-core/interaction"
	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/noderegistry"
	"github.com/agentmap/agentmap-core/policy"
	"github.com/agentmap/agentmap-core/registry"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// SourceInfo classifies where a run's compiled graph came from (spec §3
// "source_info").
type SourceInfo string

const (
	SourcePrecompiled  SourceInfo = "precompiled"
	SourceAutocompiled SourceInfo = "autocompiled"
	SourceMemory       SourceInfo = "memory"
)

// ExecutionResult is the runner's return value (spec §3 "ExecutionResult").
type ExecutionResult struct {
	GraphName     string
	FinalState    map[string]any
	Success       bool
	Error         string
	ExecutionTime time.Duration
	SourceInfo    SourceInfo
	Summary       policy.ExecutionSummary
}

// Options configures one Run call.
type Options struct {
	// IsSubgraph marks a nested invocation made by a GraphAgent (spec
	// §4.15 "Subgraph execution").
	IsSubgraph bool
	// ThreadID, when set, is reused as the interruption thread id instead
	// of generating a fresh one (keeps an interrupt/resume pair on the
	// same thread identity).
	ThreadID string
	// CSVPath and BundlePath, when known, are recorded into the
	// interaction bundle_info of any interrupt this run raises.
	CSVPath    string
	BundlePath string
}

// Runner is the graph runner (C15).
type Runner struct {
	agentTypes   *registry.AgentTypeRegistry
	injector     *inject.Engine
	nodeRegistry *noderegistry.Registry
	assembler    *graph.Assembler
	policyCfg    policy.Config
	policyFuncs  *policy.FuncRegistry
	interactions *interaction.Handler
	log          log.Logger
	pool         *ants.Pool
}

// Config collects a Runner's dependencies.
type Config struct {
	AgentTypes   *registry.AgentTypeRegistry
	Injector     *inject.Engine
	NodeRegistry *noderegistry.Registry
	Assembler    *graph.Assembler
	Policy       policy.Config
	PolicyFuncs  *policy.FuncRegistry
	Interactions *interaction.Handler
	Logger       log.Logger
	// PoolSize bounds concurrent RunAsync invocations within this process
	// (spec §5 "multiple executions in parallel within one process"). 0
	// disables pooling: RunAsync falls back to a plain goroutine.
	PoolSize int
}

// New constructs a Runner from its collaborators.
func New(cfg Config) (*Runner, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = &log.NoOpLogger{}
	}
	r := &Runner{
		agentTypes:   cfg.AgentTypes,
		injector:     cfg.Injector,
		nodeRegistry: cfg.NodeRegistry,
		assembler:    cfg.Assembler,
		policyCfg:    cfg.Policy,
		policyFuncs:  cfg.PolicyFuncs,
		interactions: cfg.Interactions,
		log:          logger,
	}
	if cfg.PoolSize > 0 {
		pool, err := ants.NewPool(cfg.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("runner: create goroutine pool: %w", err)
		}
		r.pool = pool
	}
	return r, nil
}

// RunCSV resolves (or creates) csvPath's bundle via C9 and then runs it
// (spec §4.15, the façade's run_workflow entry point).
func (r *Runner) RunCSV(ctx context.Context, bundles *bundle.Service, csvPath, graphName string, initialState map[string]any, opts Options) (*ExecutionResult, error) {
	b, created, err := bundles.GetOrCreateBundle(csvPath, graphName)
	if err != nil {
		return nil, fmt.Errorf("runner: resolve bundle: %w", err)
	}
	opts.CSVPath = csvPath

	result, err := r.Run(ctx, b, initialState, opts)
	if err != nil {
		return nil, err
	}
	if created {
		result.SourceInfo = SourceAutocompiled
	} else {
		result.SourceInfo = SourcePrecompiled
	}
	return result, nil
}

// Run executes bundle b's compiled graph (spec §4.15 steps 1-6):
// instantiate every node's agent, inject its services, validate it,
// assemble and compile the graph, invoke it, and evaluate the success
// policy over the resulting node outcomes.
func (r *Runner) Run(ctx context.Context, b *bundle.GraphBundle, initialState map[string]any, opts Options) (*ExecutionResult, error) {
	tracker := newTracker()

	agents, err := r.instantiate(b, tracker)
	if err != nil {
		return nil, fmt.Errorf("runner: instantiate nodes: %w", err)
	}

	nodes := make([]bundle.Node, 0, len(b.Nodes))
	for _, n := range b.Nodes {
		nodes = append(nodes, n)
	}
	registryMeta := r.nodeRegistry.PrepareForAssembly(b.GraphName, nodes)

	runnable, err := r.assembler.Assemble(b, agents, registryMeta)
	if err != nil {
		return nil, fmt.Errorf("runner: assemble graph: %w", err)
	}

	if initialState == nil {
		initialState = make(map[string]any)
	}

	finalState, runErr := runnable.InvokeWithObserver(ctx, initialState, tracker)
	tracker.finish()

	if runErr != nil {
		var interrupted *graph.Interrupted
		if errors.As(runErr, &interrupted) {
			return r.handleInterrupt(ctx, b, opts, tracker, interrupted)
		}
		return &ExecutionResult{
			GraphName:     b.GraphName,
			FinalState:    finalState,
			Success:       false,
			Error:         runErr.Error(),
			ExecutionTime: tracker.duration(),
			SourceInfo:    SourceMemory,
			Summary:       tracker.summary(),
		}, nil
	}

	summary := tracker.summary()
	success := policy.Evaluate(r.policyCfg, summary, r.policyFuncs, r.log)

	return &ExecutionResult{
		GraphName:     b.GraphName,
		FinalState:    finalState,
		Success:       success,
		ExecutionTime: tracker.duration(),
		SourceInfo:    SourceMemory,
		Summary:       summary,
	}, nil
}

// handleInterrupt implements the runner's side of spec §4.16: it builds
// the interaction request's bundle_info/checkpoint from what this run
// knows and delegates persistence to C16, returning a result with no
// success flag set (spec §8 testable property #12(c)).
func (r *Runner) handleInterrupt(ctx context.Context, b *bundle.GraphBundle, opts Options, tracker *Tracker, interrupted *graph.Interrupted) (*ExecutionResult, error) {
	req, ok := interrupted.Request.(*interaction.Request)
	if !ok {
		return nil, fmt.Errorf("runner: node %s raised an interrupt with an unrecognized request type %T", interrupted.Node, interrupted.Request)
	}

	threadID := opts.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	checkpoint := interaction.CheckpointData{
		Inputs:   interrupted.State,
		NodeName: interrupted.Node,
	}
	bundleInfo := interaction.BundleInfo{
		CSVHash:    b.CSVHash,
		CSVPath:    opts.CSVPath,
		BundlePath: opts.BundlePath,
	}

	if r.interactions != nil {
		if err := r.interactions.HandleInterrupt(ctx, threadID, b.GraphName, req, checkpoint, bundleInfo); err != nil {
			return nil, fmt.Errorf("runner: handle interrupt: %w", err)
		}
	}

	return &ExecutionResult{
		GraphName:     b.GraphName,
		FinalState:    interrupted.State,
		Error:         fmt.Sprintf("execution interrupted at node %s (thread %s)", interrupted.Node, threadID),
		ExecutionTime: tracker.duration(),
		SourceInfo:    SourceMemory,
		Summary:       tracker.summary(),
	}, nil
}

// instantiate builds and service-injects one agent per node (spec §4.15
// steps 1-3), merging each node's declared context with the standard
// runtime-computed fields (spec §3 "context").
func (r *Runner) instantiate(b *bundle.GraphBundle, tracker *Tracker) (map[string]graph.AssemblyAgent, error) {
	out := make(map[string]graph.AssemblyAgent, len(b.Nodes))
	for name, node := range b.Nodes {
		ctx := make(map[string]any, len(node.Context)+4)
		for k, v := range node.Context {
			ctx[k] = v
		}
		ctx["input_fields"] = node.Inputs
		ctx["output_field"] = node.Output
		ctx["description"] = node.Description
		ctx["instance_placeholder"] = nil

		instance, err := r.agentTypes.New(node.AgentType, name, node.Prompt, ctx)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}

		setLogger(instance, r.log)
		setTracker(instance, tracker)

		if _, err := r.injector.ConfigureAllServices(instance); err != nil {
			return nil, fmt.Errorf("node %s: %w", name, err)
		}

		named, ok := instance.(interface{ Name() string })
		if !ok || named.Name() == "" {
			return nil, fmt.Errorf("node %s: agent instance has no non-empty name", name)
		}
		agentImpl, ok := instance.(graph.AssemblyAgent)
		if !ok {
			return nil, fmt.Errorf("node %s: agent type %q has no run(state) method", name, node.AgentType)
		}

		out[name] = agentImpl
	}
	return out, nil
}

// RunAsync submits a run to the bounded goroutine pool configured via
// Config.PoolSize (spec §5 "multiple executions in parallel within one
// process"), falling back to a plain goroutine when no pool was
// configured. callback receives the same (*ExecutionResult, error) Run
// would return.
func (r *Runner) RunAsync(ctx context.Context, b *bundle.GraphBundle, initialState map[string]any, opts Options, callback func(*ExecutionResult, error)) error {
	task := func() {
		result, err := r.Run(ctx, b, initialState, opts)
		callback(result, err)
	}
	if r.pool != nil {
		return r.pool.Submit(task)
	}
	go task()
	return nil
}

// Close releases the runner's goroutine pool, if one was configured.
func (r *Runner) Close() {
	if r.pool != nil {
		r.pool.Release()
	}
}

func setLogger(instance any, logger log.Logger) {
	method := reflect.ValueOf(instance).MethodByName("SetLogger")
	if !method.IsValid() {
		return
	}
	defer func() { recover() }()
	method.Call([]reflect.Value{reflect.ValueOf(logger)})
}

func setTracker(instance any, tracker *Tracker) {
	method := reflect.ValueOf(instance).MethodByName("SetTracker")
	if !method.IsValid() {
		return
	}
	defer func() { recover() }()
	method.Call([]reflect.Value{reflect.ValueOf(tracker)})
}
