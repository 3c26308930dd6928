package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"repogen/internal/config"
	"repogen/internal/console"
	"repogen/internal/logx"
	"repogen/internal/paths"
)

// app bundles what a site command needs. It is built once per invocation.
type app struct {
	paths   paths.RepoPaths
	cfg     config.Config
	logger  *log.Logger
	closer  io.Closer
	console *console.Console
}

func newConsole(cmd *cobra.Command) *console.Console {
	out := cmd.OutOrStdout()
	return console.New(out, cmd.ErrOrStderr(), console.ColorEnabled(out, noColor))
}

// loadApp resolves the site root, loads .env files and the configuration,
// validates it and opens the run log. Validation warnings are printed;
// validation errors abort.
func loadApp(cmd *cobra.Command) (*app, error) {
	con := newConsole(cmd)

	pp, err := paths.Resolve(siteRoot)
	if err != nil {
		return nil, err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return nil, fmt.Errorf("stat site root: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("site root does not exist: %s", pp.Root)
	}

	if err := config.LoadEnvFiles(pp.Root); err != nil {
		return nil, err
	}
	cfg, err := config.Load(pp.ConfigFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	results := cfg.Validate()
	for _, r := range results {
		if r.Level == "error" {
			con.Error("%s", r.Message)
		} else {
			con.Warn("%s", r.Message)
		}
	}
	if config.HasErrors(results) {
		return nil, fmt.Errorf("invalid configuration in %s", pp.ConfigFile)
	}

	opts := logx.Options{Level: log.InfoLevel}
	if verbose {
		opts.Level = log.DebugLevel
		opts.Mirror = cmd.ErrOrStderr()
	}
	logger, closer, err := logx.New(pp, opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded configuration", "path", pp.ConfigFile, "releases", cfg.Releases)

	return &app{paths: pp, cfg: cfg, logger: logger, closer: closer, console: con}, nil
}

func (a *app) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}

// releases returns the configured releases whose scan root exists. Missing
// ones are skipped with a warning.
func (a *app) releases() []paths.ReleasePaths {
	var out []paths.ReleasePaths
	for _, rel := range a.paths.Releases(a.cfg) {
		ok, err := paths.DirExists(rel.ScanRoot)
		if err != nil || !ok {
			a.logger.Warn("release scan root missing, skipping", "release", rel.Name, "path", rel.ScanRoot)
			a.console.Warn("release %s not found at %s", rel.Name, rel.ScanRoot)
			continue
		}
		out = append(out, rel)
	}
	return out
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
