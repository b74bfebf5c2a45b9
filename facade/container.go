// Package facade is the thin runtime boundary (spec §6): a container that
// bootstraps the core components from configuration, and exactly-typed
// operations over named workflows that every adapter surface (CLI, HTTP,
// serverless) shares, including the error mapping to GraphNotFound /
// InvalidInputs.
package facade

import (
	"fmt"
	"os"
	"reflect"

	"github.com/agentmap/agentmap-core/agent"
	"github.com/agentmap/agentmap-core/availability"
	"github.com/agentmap/agentmap-core/bundle"
	bundlecsv "github.com/agentmap/agentmap-core/bundle/csv"
	"github.com/agentmap/agentmap-core/config"
	"github.com/agentmap/agentmap-core/graph"
	"github.com/agentmap/agentmap-core/inject"
	"github.com/agentmap/agentmap-core/interaction"
	"github.com/agentmap/agentmap-core/log"
	"github.com/agentmap/agentmap-core/noderegistry"
	"github.com/agentmap/agentmap-core/policy"
	"github.com/agentmap/agentmap-core/registry"
	"github.com/agentmap/agentmap-core/runner"
)

// Container is the composition root: every process-wide component built
// once at startup and passed by construction (never reached through
// module globals).
type Container struct {
	Config       config.Config
	Logger       log.Logger
	Availability *availability.Cache
	Features     *registry.FeatureRegistry
	AgentTypes   *registry.AgentTypeRegistry
	Services     *registry.ServiceRegistry
	Declarations *registry.DeclarationRegistry
	Injector     *inject.Engine
	NodeRegistry *noderegistry.Registry
	Assembler    *graph.Assembler
	Parser       bundle.Parser
	Registry     *bundle.Registry
	Bundles      *bundle.Service
	Interactions *interaction.Handler
	PolicyFuncs  *policy.FuncRegistry
	RouteFuncs   map[string]graph.RouteFunc
	Runner       *runner.Runner
}

// ContainerOptions tune the bootstrap.
type ContainerOptions struct {
	// OnInteraction is the display callback surfaced on every raised
	// interruption (spec §4.16 step 3).
	OnInteraction func(*interaction.Request)
	// PoolSize bounds concurrent RunAsync executions. 0 disables pooling.
	PoolSize int
}

// NewContainer bootstraps the core from configuration. Per the bootstrap
// failure-isolation policy (spec §5), component-load problems degrade to
// warnings and empty defaults; the only hard failure is a configuration
// so broken nothing can be built at all.
func NewContainer(cfg config.Config, logger log.Logger, opts ContainerOptions) (*Container, error) {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}

	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		logger.Warn("facade: cannot create cache directory %s: %v", cfg.CacheDir, err)
	}

	c := &Container{
		Config:       cfg,
		Logger:       logger,
		Availability: availability.NewCache(cfg.AvailabilityCachePath(), log.Named("availability", logger)),
		AgentTypes:   registry.NewAgentTypeRegistry(),
		Services:     registry.NewServiceRegistry(log.Named("services", logger)),
		Declarations: registry.NewDeclarationRegistry(),
		NodeRegistry: noderegistry.New(log.Named("noderegistry", logger)),
		Parser:       bundlecsv.New(),
		PolicyFuncs:  policy.NewFuncRegistry(),
		RouteFuncs:   make(map[string]graph.RouteFunc),
	}

	c.Features = registry.NewFeatureRegistry(c.Availability, log.Named("features", logger))
	if cfg.HostExtensions {
		c.Features.EnableFeature("host_extensions")
	}
	if len(cfg.LLM) > 0 {
		c.Features.EnableFeature("llm")
	}
	if len(cfg.Storage) > 0 {
		c.Features.EnableFeature("storage")
	}

	agent.RegisterBuiltins(c.AgentTypes)

	if decls := cfg.Declarations(); len(decls) > 0 {
		if err := c.Declarations.Load(decls); err != nil {
			logger.Warn("facade: service declarations not loaded: %v", err)
		}
	}

	c.Injector = inject.NewEngine(c.Services, log.Named("inject", logger))
	c.Assembler = graph.NewAssembler(graph.FuncResolverFunc(func(name string) (graph.RouteFunc, bool) {
		fn, ok := c.RouteFuncs[name]
		return fn, ok
	}), log.Named("assembler", logger))
	if rp := cfg.NodeRetryPolicy(); rp != nil {
		c.Assembler.SetRetryPolicy(rp)
	}

	c.Registry = bundle.NewRegistry(cfg.RegistryPath(), log.Named("registry", logger))
	analyzer := bundle.NewAnalyzer(c.AgentTypes, c.Declarations, log.Named("analyzer", logger))
	static := bundle.NewStaticAnalyzer(c.AgentTypes, c.Declarations, log.Named("analyzer", logger))
	c.Bundles = bundle.NewService(c.Parser, analyzer, c.Registry, cfg.CacheDir, log.Named("bundle", logger)).
		WithStaticAnalyzer(static)

	interactionStore := interaction.NewFileStore(cfg.InteractionStorePath(), log.Named("interaction", logger))
	c.Interactions = interaction.NewHandler(interactionStore, log.Named("interaction", logger), opts.OnInteraction)

	r, err := runner.New(runner.Config{
		AgentTypes:   c.AgentTypes,
		Injector:     c.Injector,
		NodeRegistry: c.NodeRegistry,
		Assembler:    c.Assembler,
		Policy:       cfg.SuccessPolicy(),
		PolicyFuncs:  c.PolicyFuncs,
		Interactions: c.Interactions,
		Logger:       log.Named("runner", logger),
		PoolSize:     opts.PoolSize,
	})
	if err != nil {
		return nil, fmt.Errorf("facade: build runner: %w", err)
	}
	c.Runner = r

	// The orchestrator adapter is the OrchestrationCapable provider, so
	// graph-agents can run subgraphs through the same runner.
	orchestrator := runner.NewOrchestratorAdapter(c.Runner, c.Bundles)
	c.Services.RegisterServiceProvider("orchestrator", orchestrator,
		[]reflect.Type{reflect.TypeOf((*inject.OrchestrationCapable)(nil)).Elem()}, nil)

	return c, nil
}

// Close releases pooled resources.
func (c *Container) Close() {
	if c.Runner != nil {
		c.Runner.Close()
	}
}
