// Package cmd provides the CLI commands for searchbridge.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/config"
	"github.com/Aman-CERP/searchbridge/internal/logging"
	"github.com/Aman-CERP/searchbridge/internal/output"
	"github.com/Aman-CERP/searchbridge/internal/profiling"
	"github.com/Aman-CERP/searchbridge/internal/ui"
	"github.com/Aman-CERP/searchbridge/pkg/bridge"
	"github.com/Aman-CERP/searchbridge/pkg/version"
)

// annotationNoConfig marks commands that run without loading configuration.
const annotationNoConfig = "searchbridge/no-config"

// app is the state shared by every command of one invocation.
type app struct {
	configPath string
	debug      bool
	jsonOut    bool
	profile    profiling.Options

	cfg      *config.Config
	json     bool
	logClose func()
	prof     *profiling.Session
	workers  *bridge.Pool
}

// NewRootCmd creates the root command for the searchbridge CLI.
func NewRootCmd() *cobra.Command {
	cmd, _ := newRoot()
	return cmd
}

func newRoot() (*cobra.Command, *app) {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "searchbridge",
		Short: "Embeddable full-text search with a concurrent bridge and MCP server",
		Long: `searchbridge builds and searches full-text indexes described by a JSON
schema. Documents are ingested from .json, .jsonl and .ndjson files, searched
with a query-string syntax, and served to AI assistants over MCP.

Get started:
  searchbridge init             # write searchbridge.yaml and schema.json
  searchbridge index ./docs     # ingest documents
  searchbridge search "sailing" # query the index
  searchbridge serve            # start the MCP server on stdio`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("searchbridge version {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file (default: searchbridge.yaml in the current directory)")
	pf.BoolVar(&a.debug, "debug", false, "Log at debug level to stderr")
	pf.BoolVar(&a.jsonOut, "json", false, "Write results as JSON (default when stdout is not a terminal)")
	pf.StringVar(&a.profile.CPU, "profile-cpu", "", "Write CPU profile to file")
	pf.StringVar(&a.profile.Mem, "profile-mem", "", "Write memory profile to file")
	pf.StringVar(&a.profile.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = a.setup
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error { return a.teardown() }

	cmd.AddCommand(
		newInitCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newTermsCmd(a),
		newTokenizeCmd(a),
		newSchemaCmd(a),
		newStatusCmd(a),
		newDoctorCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
		newLogsCmd(a),
		newVersionCmd(a),
	)
	return cmd, a
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, a := newRoot()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	_ = a.teardown()
	output.New(root.ErrOrStderr(), a.json).Error(err)
	return 1
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.json = a.jsonOut
	if !cmd.Flags().Changed("json") {
		a.json = !ui.IsTTY(cmd.OutOrStdout())
	}

	if cmd.Annotations[annotationNoConfig] == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		cfg, err := config.Load(wd, a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.NewConfig()
	}

	logCfg := logging.Config{
		Level:         a.cfg.Logging.Level,
		FilePath:      a.cfg.Logging.File,
		MaxSizeMB:     a.cfg.Logging.MaxSizeMB,
		MaxFiles:      a.cfg.Logging.MaxFiles,
		WriteToStderr: a.cfg.Logging.Stderr || a.debug,
	}
	if a.debug {
		logCfg.Level = "debug"
	}
	var err error
	if cmd.Name() == "serve" {
		a.logClose, err = logging.SetupServeMode(logCfg)
	} else {
		a.logClose, err = logging.SetupDefault(logCfg)
	}
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}

	if a.profile.Enabled() {
		if a.prof, err = profiling.Start(a.profile); err != nil {
			return err
		}
	}
	slog.Debug("command_started", slog.String("command", cmd.CommandPath()), slog.String("version", version.Version))
	return nil
}

// teardown undoes setup. It runs after successful commands and again from
// Execute on failure, so every step tolerates a second call.
func (a *app) teardown() error {
	var err error
	if a.workers != nil {
		_ = a.workers.Close()
		a.workers = nil
	}
	if a.prof != nil {
		err = a.prof.Stop()
		a.prof = nil
	}
	if a.logClose != nil {
		a.logClose()
		a.logClose = nil
	}
	return err
}

// out returns the result writer for cmd.
func (a *app) out(cmd *cobra.Command) *output.Writer {
	return output.New(cmd.OutOrStdout(), a.json)
}

// pool returns the worker pool for the Async forms, sized by
// bridge.workers.
func (a *app) pool() *bridge.Pool {
	if a.workers == nil {
		a.workers = bridge.NewPool(bridge.Config{Workers: a.cfg.Bridge.Workers})
	}
	return a.workers
}
