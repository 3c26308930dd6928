package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"repogen/internal/version"
)

func newVersionCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version-compare <candidate> <current>",
		Short: "Exit 0 when candidate is newer than current, 1 otherwise",
		Long: "Compare two version strings by their numeric components. Non-digit runs\n" +
			"separate components and missing components count as zero, so 1.0 and 1.0.0\n" +
			"are equal.",
		Args: cobra.ExactArgs(2),
		RunE: runVersionCompare,
	}
}

// errNotNewer gives the command a non-zero exit.
type errNotNewer struct{ candidate, current string }

func (e errNotNewer) Error() string {
	return fmt.Sprintf("%s is not newer than %s", e.candidate, e.current)
}

func runVersionCompare(cmd *cobra.Command, args []string) error {
	candidate, current := args[0], args[1]
	newer := version.IsNewer(candidate, current)

	if outputJSON {
		payload := struct {
			Candidate string `json:"candidate"`
			Current   string `json:"current"`
			Newer     bool   `json:"newer"`
		}{candidate, current, newer}
		if err := json.NewEncoder(cmd.OutOrStdout()).Encode(payload); err != nil {
			return fmt.Errorf("encode comparison json: %w", err)
		}
	} else {
		verdict := "not newer than"
		if newer {
			verdict = "newer than"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is %s %s\n", candidate, verdict, current)
	}
	if !newer {
		return errNotNewer{candidate: candidate, current: current}
	}
	return nil
}
