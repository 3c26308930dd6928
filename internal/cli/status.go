package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"repogen/internal/descriptor"
	"repogen/internal/manifest"
	"repogen/internal/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show what a sync would do for every plugin, without writing",
		RunE:  runStatus,
	}
}

type statusRow struct {
	Release  string `json:"release"`
	Folder   string `json:"folder"`
	ID       string `json:"id,omitempty"`
	Recorded string `json:"recorded,omitempty"`
	Source   string `json:"source,omitempty"`
	Action   string `json:"action"`
	Reason   string `json:"reason"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var rows []statusRow
	for _, rel := range a.releases() {
		doc, err := manifest.Load(rel.ManifestFile)
		if err != nil {
			return err
		}
		folders, err := repo.Discover(rel.ScanRoot, rel.OutputName, a.cfg.DescriptorName)
		if err != nil {
			return err
		}
		for _, folder := range folders {
			row := statusRow{Release: rel.Name, Folder: folder}
			d, err := descriptor.LoadDir(folder, a.cfg.DescriptorName)
			if err != nil {
				row.Action = "failed"
				row.Reason = err.Error()
				rows = append(rows, row)
				continue
			}
			dec := repo.Decide(doc, d, folder, rel.OutputDir, false)
			row.ID = d.ID
			row.Recorded = dec.Previous
			row.Source = d.Version
			row.Action = dec.Action
			row.Reason = dec.Reason
			rows = append(rows, row)
		}
	}

	if outputJSON {
		return writeStatusJSON(cmd, a.paths.Root, rows)
	}
	writeStatusTable(cmd, a, rows)
	return nil
}

func writeStatusTable(cmd *cobra.Command, a *app, rows []statusRow) {
	fmt.Fprintf(cmd.OutOrStdout(), "Site: %s\n", a.paths.Root)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(w, "RELEASE\tPLUGIN\tRECORDED\tSOURCE\tACTION\tREASON")
	pending := 0
	for _, row := range rows {
		id := row.ID
		if id == "" {
			id = row.Folder
		}
		if row.Action == repo.ActionBuild {
			pending++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			row.Release,
			id,
			nonEmptyOrDash(row.Recorded),
			nonEmptyOrDash(row.Source),
			row.Action,
			row.Reason,
		)
	}
	w.Flush()

	if pending == 0 {
		a.console.Success("Everything is up to date")
		return
	}
	a.console.Info("%d plugin(s) would be rebuilt", pending)
}

func writeStatusJSON(cmd *cobra.Command, root string, rows []statusRow) error {
	payload := struct {
		Site    string      `json:"site"`
		Plugins []statusRow `json:"plugins"`
	}{
		Site:    root,
		Plugins: rows,
	}
	if payload.Plugins == nil {
		payload.Plugins = []statusRow{}
	}

	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
