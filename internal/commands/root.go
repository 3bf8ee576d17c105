// Package commands provides CLI commands for zai.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/zai/internal/config"
	"github.com/diogo/zai/internal/logging"
	"github.com/diogo/zai/internal/tui"
)

// Version info (set at build time)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	engine  string
	bridge  string
	verbose bool
}

// app carries per-invocation state from PersistentPreRunE to the commands.
type app struct {
	deps   *Dependencies
	flags  globalFlags
	cfg    config.Config
	cfgErr error
	logger *zap.Logger
}

// exitError reports a failure that was already printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// setup loads the configuration, applies global flags and builds the logger.
func (a *app) setup() error {
	cfg, err := a.deps.LoadConfig()
	if err != nil {
		fmt.Fprintf(a.deps.Stderr, "Warning: %v, using defaults\n", err)
	}

	if a.flags.engine != "" {
		cfg.DefaultEngine = a.flags.engine
		if !slices.Contains(cfg.Engines, a.flags.engine) {
			cfg.Engines = append(cfg.Engines, a.flags.engine)
		}
	}
	if a.flags.bridge != "" {
		cfg.Bridge.URL = a.flags.bridge
	}
	if a.flags.verbose {
		cfg.Verbose = true
	}
	a.cfg = cfg
	a.cfgErr = cfg.Validate()

	logger, err := a.deps.NewLogger(logging.Options{Path: cfg.LogFile, Verbose: cfg.Verbose})
	if err != nil {
		fmt.Fprintf(a.deps.Stderr, "Warning: %v, logging disabled\n", err)
	}
	a.logger = logging.OrNop(logger)
	return nil
}

// NewRootCmd builds the command tree.
func NewRootCmd(deps *Dependencies) *cobra.Command {
	a := &app{deps: deps}
	var q queryFlags

	cmd := &cobra.Command{
		Use:   "zai [query]",
		Short: "Terminal chat client for the ZEGA engines",
		Long: `zai sends queries to a ZEGA engine through a configurable bridge and
shows the answers in the terminal.

Examples:
  zai chat                              Start interactive chat
  zai "What is an LPU?"                 Send a single query
  zai -e llama3-70b "Hello"             Pick the engine
  zai -f prompt.md                      Read the query from a file
  cat prompt.md | zai                   Read the query from stdin
  zai "Hello" -o response.md            Save the response to a file
  zai config set bridge.url ws://localhost:8765
`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(deps.Stdout, "zai %s (built %s)\n", Version, BuildTime)
				return nil
			}

			query, ok, err := readQuery(deps, q.file, args)
			if err != nil {
				return err
			}
			if !ok {
				return cmd.Help()
			}
			return a.runQuery(cmd.Context(), query, q)
		},
	}
	cmd.SetIn(deps.Stdin)
	cmd.SetOut(deps.Stdout)
	cmd.SetErr(deps.Stderr)

	cmd.PersistentFlags().StringVarP(&a.flags.engine, "engine", "e", "", "Engine to use (default from config)")
	cmd.PersistentFlags().StringVar(&a.flags.bridge, "bridge", "", "Bridge URL (http(s):// or ws(s)://), overrides config")
	cmd.PersistentFlags().BoolVar(&a.flags.verbose, "verbose", false, "Debug level logging")
	cmd.Flags().StringVarP(&q.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&q.file, "file", "f", "", "Read query from file")
	cmd.Flags().BoolVar(&q.copy, "copy", false, "Copy the response to the clipboard")
	cmd.Flags().BoolVar(&q.raw, "raw", false, "Print the response without markdown rendering")
	cmd.Flags().Bool("version", false, "Show version and exit")

	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newEnginesCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	cmd.AddCommand(newHistoryCmd(a))

	return cmd
}

// readQuery picks the query from -f, stdin or the positional argument, in
// that order. ok is false when none was given.
func readQuery(deps *Dependencies, file string, args []string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if deps.StdinPiped != nil && deps.StdinPiped() {
		data, err := io.ReadAll(deps.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), true, nil
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

var rootCmd = NewRootCmd(NewDependencies())

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err == nil {
		return
	}

	var ee *exitError
	if errors.As(err, &ee) {
		os.Exit(ee.code)
	}
	fmt.Fprintln(os.Stderr, tui.FormatError(err))
	os.Exit(1)
}
