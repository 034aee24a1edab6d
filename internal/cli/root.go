// Package cli implements the command-line interface.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aidanlsb/shed/internal/commands"
	"github.com/aidanlsb/shed/internal/config"
	"github.com/aidanlsb/shed/internal/logging"
	"github.com/aidanlsb/shed/internal/ui"
)

var (
	// Global flags
	configPath   string
	logLevelFlag string
	pipeFlag     bool
	noPipeFlag   bool

	// Resolved values
	resolvedConfigPath string
	cfg                = config.Default()
	logger             = logging.Discard()
)

// newRootCmd builds the command tree. Global flag state is reset so the tree
// can be built more than once in one process.
func newRootCmd() *cobra.Command {
	configPath, logLevelFlag = "", ""
	pipeFlag, noPipeFlag, jsonOutput = false, false, false
	pipeFormatOverride = nil
	cfg = config.Default()
	logger = logging.Discard()

	root := &cobra.Command{
		Use:   "shed",
		Short: "shed - typed command pipelines over an entity world",
		Long: `shed runs spawn pipelines against an in-memory entity world.

Every subcommand has one or more variants, each declaring the type of value it
accepts from the pipe. Given a pipe value, exactly one variant is chosen; a
scalar variant is applied element by element when the pipe carries a sequence.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch cmd.Name() {
			case "completion", "help", "version":
				return nil
			}
			return setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	root.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level for stderr diagnostics (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format (for agent/script use)")
	root.PersistentFlags().BoolVar(&pipeFlag, "pipe", false, "Force tab-separated output")
	root.PersistentFlags().BoolVar(&noPipeFlag, "no-pipe", false, "Force human-readable output")
	root.MarkFlagsMutuallyExclusive("pipe", "no-pipe")

	root.AddCommand(
		commands.GenerateCobraCommand("run", runScenario),
		commands.GenerateCobraCommand("commands", listCommands, completers()),
		commands.GenerateCobraCommand("prototypes", listPrototypes, completers()),
		commands.GenerateCobraCommand("version", showVersion),
	)
	return root
}

// Execute runs the CLI.
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	var reported errReported
	switch {
	case err == nil, errors.As(err, &reported):
	case jsonOutput:
		outputJSON(os.Stdout, Response{Error: &ErrorInfo{Code: ErrInvalidInput, Message: err.Error()}})
	default:
		fmt.Fprintln(os.Stderr, ui.Error(err.Error()))
	}
	return err
}

func setup(cmd *cobra.Command) error {
	loaded, path, err := config.Resolve(configPath)
	if err != nil {
		return handleError(cmd, ErrConfigInvalid, err, "Check "+path+" and SHED_* environment variables")
	}
	cfg, resolvedConfigPath = loaded, path

	level := cfg.Log.Level
	if logLevelFlag != "" {
		level = logLevelFlag
	}
	l, err := logging.New(cmd.ErrOrStderr(), logging.Options{Level: level, Format: cfg.Log.Format})
	if err != nil {
		return handleError(cmd, ErrInvalidInput, err, "")
	}
	logger = l
	logger.Debug("config loaded", slog.String("path", resolvedConfigPath), slog.String("lift_policy", cfg.LiftPolicy))

	ui.ConfigureTheme(cfg.UI.Accent)

	switch {
	case pipeFlag:
		SetPipeFormat(&pipeFlag)
	case noPipeFlag:
		f := false
		SetPipeFormat(&f)
	}
	return nil
}
