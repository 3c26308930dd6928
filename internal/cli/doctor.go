package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"repogen/internal/archive"
	"repogen/internal/config"
	"repogen/internal/descriptor"
	"repogen/internal/digest"
	"repogen/internal/manifest"
	"repogen/internal/paths"
	"repogen/internal/repo"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check site health",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(siteRoot)
	if err != nil {
		return err
	}
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat site root: %w", err)
	}
	if !exists {
		return fmt.Errorf("site root does not exist: %s", pp.Root)
	}

	var checks []healthCheck

	if err := config.LoadEnvFiles(pp.Root); err != nil {
		checks = append(checks, healthCheck{Name: "Env", Status: "warning", Summary: err.Error()})
	}
	cfg, cfgErr := config.Load(pp.ConfigFile)
	if cfgErr == nil {
		cfgErr = cfg.ApplyEnv()
	}
	checks = append(checks, checkConfig(cfg, cfgErr))
	if cfgErr != nil {
		// Can't proceed with further checks without config
		return writeDoctorResult(cmd, pp.Root, checks)
	}

	for _, rel := range pp.Releases(cfg) {
		checks = append(checks, checkRelease(cfg, rel))
	}
	checks = append(checks, checkRepository(pp, cfg))
	checks = append(checks, checkTransfer(cfg))

	return writeDoctorResult(cmd, pp.Root, checks)
}

func checkConfig(cfg config.Config, cfgErr error) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	validations := cfg.Validate()
	var warnings, errs int
	for _, v := range validations {
		switch v.Level {
		case "warning":
			warnings++
		case "error":
			errs++
		}
	}

	summary := fmt.Sprintf("%d releases", len(cfg.Releases))
	if errs > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, errs)}
	}
	if warnings > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, warnings)}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

// checkRelease summarizes a release: its manifest, its digest and how many
// plugins a sync would rebuild.
func checkRelease(cfg config.Config, rel paths.ReleasePaths) healthCheck {
	name := "Release " + rel.Name
	if ok, _ := paths.DirExists(rel.ScanRoot); !ok {
		return healthCheck{Name: name, Status: "warning", Summary: "scan root not found"}
	}

	doc, err := manifest.Load(rel.ManifestFile)
	if err != nil {
		return healthCheck{Name: name, Status: "error", Summary: err.Error()}
	}
	folders, err := repo.Discover(rel.ScanRoot, rel.OutputName, cfg.DescriptorName)
	if err != nil {
		return healthCheck{Name: name, Status: "error", Summary: err.Error()}
	}

	var stale, broken int
	seen := map[string]bool{}
	for _, folder := range folders {
		d, err := descriptor.LoadDir(folder, cfg.DescriptorName)
		if err != nil || seen[d.ID] {
			broken++
			continue
		}
		seen[d.ID] = true
		if repo.Decide(doc, d, folder, rel.OutputDir, false).Stale() {
			stale++
		}
	}

	parts := []string{fmt.Sprintf("%d plugins, %d in manifest", len(folders), doc.Len())}
	status := "ok"
	if stale > 0 {
		parts = append(parts, fmt.Sprintf("%d stale", stale))
		status = "warning"
	}
	if broken > 0 {
		parts = append(parts, fmt.Sprintf("%d unreadable or duplicate", broken))
		status = "error"
	}
	if ok, _ := paths.FileExists(rel.ManifestFile); ok {
		if err := digest.Verify(rel.ManifestFile); err != nil {
			var mismatch *digest.MismatchError
			switch {
			case errors.As(err, &mismatch):
				parts = append(parts, "manifest digest mismatch")
				status = "error"
			case errors.Is(err, os.ErrNotExist):
				parts = append(parts, "manifest digest missing")
				if status == "ok" {
					status = "warning"
				}
			}
		}
	}
	return healthCheck{Name: name, Status: status, Summary: joinComma(parts)}
}

func checkRepository(pp paths.RepoPaths, cfg config.Config) healthCheck {
	if cfg.RepositoryID == "" {
		return healthCheck{Name: "Repository", Status: "warning", Summary: "repository_id not set"}
	}
	for _, rel := range pp.Releases(cfg) {
		doc, err := manifest.Load(rel.ManifestFile)
		if err != nil {
			continue
		}
		e, ok := doc.Get(cfg.RepositoryID)
		if !ok {
			continue
		}
		name := archive.Name(e.ID, e.Version)
		if ok, _ := paths.FileExists(filepath.Join(pp.Root, name)); !ok {
			return healthCheck{Name: "Repository", Status: "warning", Summary: name + " not published to the site root"}
		}
		return healthCheck{Name: "Repository", Status: "ok", Summary: name}
	}
	return healthCheck{Name: "Repository", Status: "warning", Summary: cfg.RepositoryID + " not in any manifest"}
}

func checkTransfer(cfg config.Config) healthCheck {
	t := cfg.Transfer
	if t.Host == "" {
		return healthCheck{Name: "Transfer", Status: "ok", Summary: "not configured"}
	}
	target := fmt.Sprintf("%s@%s:%d", t.User, t.Host, t.Port)
	if t.Password == "" && t.KeyFile == "" {
		return healthCheck{Name: "Transfer", Status: "warning", Summary: target + ", no credentials"}
	}
	return healthCheck{Name: "Transfer", Status: "ok", Summary: target}
}

func writeDoctorResult(cmd *cobra.Command, root string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("SITE HEALTH:")+" "+root)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-16s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
