package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/artifacts"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/catalog"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/config"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/monitoring"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

type rootOptions struct {
	configPath string
	logLevel   string
	jsonOutput bool
}

// env is what every subcommand needs, built once per invocation.
type env struct {
	cfg     *config.Config
	logger  *monitoring.Logger
	catalog *catalog.Catalog
	out     io.Writer
	json    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	e := &env{}

	cmd := &cobra.Command{
		Use:           "surveyctl",
		Short:         "Score, cluster and label survey exports from the command line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init(cmd, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file path (default: $SURVEY_CONFIG)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&opts.jsonOutput, "json", false, "print results as JSON")

	cmd.AddCommand(
		newRunCommand(e),
		newElbowCommand(e),
		newModelsCommand(e),
		newRunsCommand(e),
		newCatalogCommand(e),
	)
	return cmd
}

func (e *env) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.LoadDefault(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	cat, err := catalog.Default()
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to load question catalog: %w", err)
	}

	e.cfg = cfg
	e.logger = monitoring.NewLoggerTo(cmd.ErrOrStderr(), cfg.Log.Level)
	e.catalog = cat
	e.out = cmd.OutOrStdout()
	e.json = opts.jsonOutput
	return nil
}

func (e *env) store() (*artifacts.Store, error) {
	return artifacts.NewStore(e.cfg.Storage.ModelDir)
}

func (e *env) printJSON(v interface{}) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
