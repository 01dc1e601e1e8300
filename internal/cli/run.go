package cli

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/tether/internal/metrics"
	"github.com/roach88/tether/internal/scenario"
	"github.com/roach88/tether/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Metrics  bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run one scenario and print its trace",
		Long: `Run a scenario through the sync engine and print its trace.

Every change is journaled to a SQLite database. Without --db the run uses
a fresh in-memory database; with --db the journal is kept and can be
inspected with "tether journal".

Exit codes:
  0 - Scenario passed
  1 - Scenario failed
  2 - Command error (unreadable scenario, database error, etc.)

Examples:
  tether run ./scenarios/adopt_and_move.yaml
  tether run ./scenarios/link_mirror.yaml --db ./tether.db --metrics
  tether run ./scenarios/lazy_family.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default: in-memory)")
	cmd.Flags().BoolVar(&opts.Metrics, "metrics", false, "print sync metrics after the run")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario file not found: %s", path))
	}

	s, err := scenario.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	runOpts := []scenario.Option{scenario.WithLogger(logger)}

	if opts.Database != "" {
		formatter.VerboseLog("opening database %s", opts.Database)
		st, err := store.Open(opts.Database, store.WithStoreLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		runOpts = append(runOpts, scenario.WithStore(st))
	}

	var reg *prometheus.Registry
	if opts.Metrics {
		reg = prometheus.NewRegistry()
		runOpts = append(runOpts, scenario.WithObserver(metrics.NewCollector(reg)))
	}

	result, err := scenario.Run(cmd.Context(), s, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	if formatter.JSON() {
		status := "ok"
		if !result.Pass {
			status = "error"
		}
		if err := writeJSON(cmd.OutOrStdout(), CLIResponse{Status: status, Data: result}); err != nil {
			return err
		}
	} else {
		data, err := scenario.TraceSnapshot{ScenarioName: s.Name, Trace: result.Trace}.MarshalLines()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render trace", err)
		}
		w := cmd.OutOrStdout()
		if _, err := w.Write(data); err != nil {
			return err
		}
		if result.Pass {
			fmt.Fprintf(w, "✓ %s (%d changes journaled)\n", s.Name, result.Journal)
		} else {
			fmt.Fprintf(w, "✗ %s\n", s.Name)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s\n", e)
			}
		}
	}

	if reg != nil {
		if err := metrics.Dump(reg, cmd.ErrOrStderr()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", s.Name))
	}
	return nil
}
