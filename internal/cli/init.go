package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"repogen/internal/config"
	"repogen/internal/logx"
	"repogen/internal/paths"
)

var initRepositoryID string

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a repository site",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}

	cmd.Flags().StringVar(&initRepositoryID, "repository-id", "", "Identifier of the repository's own package")
	return cmd
}

func resolveInitDir(rootFlag string, args []string) (string, error) {
	if rootFlag != "" {
		return rootFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("repogen-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(siteRoot, args)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}
	if err := pp.EnsureRoot(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, logx.Options{Level: log.InfoLevel})
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("init", "path", pp.Root)

	created := make([]string, 0, 4)
	cfg, err := ensureConfig(pp, &created, logger)
	if err != nil {
		return err
	}

	for _, rel := range pp.Releases(cfg) {
		exists, err := paths.DirExists(rel.OutputDir)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := os.MkdirAll(rel.OutputDir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", rel.OutputDir, err)
		}
		logger.Info("created output directory", "path", rel.OutputDir)
		if r, err := filepath.Rel(pp.Root, rel.OutputDir); err == nil {
			created = append(created, r+"/")
		}
	}

	con := newConsole(cmd)
	if len(created) == 0 {
		con.Plain("Site already initialized at %s", pp.Root)
		return nil
	}

	con.Success("Initialized site at %s", pp.Root)
	for _, entry := range created {
		con.Plain("  created %s", entry)
	}
	return nil
}

// ensureConfig writes the default configuration when none exists and returns
// the configuration in effect.
func ensureConfig(pp paths.RepoPaths, created *[]string, logger *log.Logger) (config.Config, error) {
	exists, err := paths.FileExists(pp.ConfigFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("check config: %w", err)
	}
	if exists {
		logger.Info("config exists", "path", pp.ConfigFile)
		return config.Load(pp.ConfigFile)
	}

	cfg := config.Default()
	cfg.RepositoryID = initRepositoryID
	cfg.ApplyDefaults()
	data, err := cfg.Marshal()
	if err != nil {
		return cfg, err
	}

	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return cfg, fmt.Errorf("write config: %w", err)
	}
	logger.Info("created config", "path", pp.ConfigFile)
	*created = append(*created, config.FileName)
	return cfg, nil
}
