package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Regenerate directory listings for the published tree",
		RunE:  runIndex,
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	var outcome syncOutcome
	renderIndexes(a, a.releases(), &outcome)

	if outputJSON {
		payload := struct {
			Written []string `json:"written"`
			Errors  []string `json:"errors,omitempty"`
		}{Written: outcome.Indexes}
		for _, err := range outcome.IndexErrors {
			payload.Errors = append(payload.Errors, err.Error())
		}
		if payload.Written == nil {
			payload.Written = []string{}
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode index json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	for _, err := range outcome.IndexErrors {
		a.console.Warn("%v", err)
	}
	a.console.Success("Wrote %d directory listing(s)", len(outcome.Indexes))
	return nil
}
