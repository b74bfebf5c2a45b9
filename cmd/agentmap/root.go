package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/agentmap/agentmap-core/config"
	"github.com/agentmap/agentmap-core/facade"
	"github.com/agentmap/agentmap-core/interaction"
	"github.com/agentmap/agentmap-core/log"
)

var (
	cfgFile      string
	workflowsDir string

	container *facade.Container
	app       *facade.Facade
)

// Execute is the CLI entry point.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "agentmap",
		Short:         "Declarative graph-execution runtime",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if workflowsDir == "" {
				if wd, err := os.Getwd(); err == nil {
					workflowsDir = wd
				}
			}

			logger := log.NewGologLoggerWithLevel(os.Stderr, parseLogLevel(cfg.LogLevel))
			log.SetDefaultLogger(logger)

			container, err = facade.NewContainer(cfg, logger, facade.ContainerOptions{
				OnInteraction: displayInteraction,
			})
			if err != nil {
				return err
			}
			app = facade.New(container, workflowsDir)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if container != nil {
				container.Close()
			}
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to agentmap config file")
	root.PersistentFlags().StringVar(&workflowsDir, "workflows", "", "Directory holding workflow spec files")

	root.AddCommand(
		newRunCmd(),
		newListGraphsCmd(),
		newValidateCmd(),
		newDiagnoseCmd(),
		newRefreshCacheCmd(),
		newValidateCacheCmd(),
	)
	return root
}

func parseLogLevel(level string) log.LogLevel {
	switch level {
	case "debug":
		return log.LogLevelDebug
	case "warn":
		return log.LogLevelWarn
	case "error":
		return log.LogLevelError
	case "none":
		return log.LogLevelNone
	default:
		return log.LogLevelInfo
	}
}

// displayInteraction is the façade's display callback: it surfaces a
// paused thread's prompt on the terminal so a human can respond through a
// later resume invocation.
func displayInteraction(req *interaction.Request) {
	renderInteraction(os.Stdout, req)
}
