package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"repogen/internal/manifest"
	"repogen/internal/paths"
	"repogen/internal/transfer"
)

var (
	transferDest     string
	transferDryRun   bool
	transferRelease  string
	transferInsecure bool
)

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Upload the repository package and manifest to the serving host",
		Long: "Upload the root repository archive, the release manifest with its digest and the\n" +
			"repository package to the configured SSH host, or mirror them into --dest.",
		RunE: runTransfer,
	}

	cmd.Flags().StringVar(&transferDest, "dest", "", "Mirror into a local directory instead of the SSH host")
	cmd.Flags().BoolVar(&transferDryRun, "dry-run", false, "List the uploads without sending anything")
	cmd.Flags().StringVar(&transferRelease, "release", "", "Release whose manifest is uploaded (default: first configured)")
	cmd.Flags().BoolVar(&transferInsecure, "insecure", false, "Accept any SSH host key")
	return cmd
}

func runTransfer(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.cfg.RepositoryID == "" {
		return fmt.Errorf("repository_id is not configured")
	}
	rel, err := transferReleasePaths(a)
	if err != nil {
		return err
	}
	doc, err := manifest.Load(rel.ManifestFile)
	if err != nil {
		return err
	}
	entry, ok := doc.Get(a.cfg.RepositoryID)
	if !ok {
		return fmt.Errorf("repository package %s is not in %s; run sync first", a.cfg.RepositoryID, rel.ManifestFile)
	}

	items := transfer.PlanFor(transfer.PlanInput{
		SiteRoot:     a.paths.Root,
		Release:      rel,
		RepositoryID: entry.ID,
		Version:      entry.Version,
	})

	ctx := commandContext(cmd)
	var target transfer.Target
	switch {
	case transferDryRun:
		target = &transfer.DryRunTarget{Logger: a.logger}
	case transferDest != "":
		target = transfer.DirTarget{Root: transferDest}
	default:
		t := a.cfg.Transfer
		target, err = transfer.DialSSH(ctx, transfer.SSHConfig{
			Host:       t.Host,
			Port:       t.Port,
			User:       t.User,
			Password:   t.Password,
			KeyFile:    t.KeyFile,
			KnownHosts: t.KnownHosts,
			Insecure:   t.Insecure || transferInsecure,
			BaseDir:    t.BaseDir,
		})
		if err != nil {
			return err
		}
	}
	defer target.Close()

	res, err := transfer.Run(ctx, target, items, a.logger)
	if err != nil {
		a.logger.Error("transfer failed", "err", err)
		return err
	}

	if outputJSON {
		payload := struct {
			Sent    []string `json:"sent"`
			Skipped []string `json:"skipped"`
			DryRun  bool     `json:"dry_run"`
		}{Sent: []string{}, Skipped: []string{}, DryRun: transferDryRun}
		for _, it := range res.Sent {
			payload.Sent = append(payload.Sent, it.Remote)
		}
		for _, it := range res.Skipped {
			payload.Skipped = append(payload.Skipped, it.Remote)
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode transfer json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	verb := "uploaded"
	if transferDryRun {
		verb = "would upload"
	}
	for _, it := range res.Sent {
		a.console.Plain("%s %s", verb, it.Remote)
	}
	for _, it := range res.Skipped {
		a.console.Detail("skipped %s (not present)", it.Remote)
	}
	a.console.Success("Transfer of %s %s complete: %d sent, %d skipped", entry.ID, entry.Version, len(res.Sent), len(res.Skipped))
	return nil
}

func transferReleasePaths(a *app) (paths.ReleasePaths, error) {
	if transferRelease != "" {
		return a.paths.Release(a.cfg, transferRelease), nil
	}
	if len(a.cfg.Releases) == 0 {
		return paths.ReleasePaths{}, fmt.Errorf("no releases configured")
	}
	return a.paths.Release(a.cfg, a.cfg.Releases[0]), nil
}
