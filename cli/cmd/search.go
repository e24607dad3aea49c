package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/cli/internal/client"
	"github.com/telhawk-systems/fwlens/cli/pkg/output"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search firewall logs",
	Long:  "Run a query_string search through the API and print the matching logs",
	Example: `  fwlens search "srcip:10.0.0.5 AND action:deny" --days 1
  fwlens search failed --limit 100 --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, p, err := activeProfile(cmd)
		if err != nil {
			return err
		}

		resp, err := client.New(p.APIURL).Search(cmd.Context(), p.AccessToken, requestFromFlags(cmd, args))
		if err != nil {
			if errors.Is(err, client.ErrUnauthorized) {
				return fmt.Errorf("session rejected by server, run 'fwlens login': %w", err)
			}
			return fmt.Errorf("search failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if handled, err := output.Structured(format, resp.Results); handled {
			return err
		}

		if len(resp.Results) == 0 {
			output.Warn("No logs found.")
			return nil
		}

		output.Success("Search completed: %d results", len(resp.Results))
		records := analytics.NewNormalizer(nil).NormalizeBatch(resp.Results)
		output.RecordsTable(records).Render()
		if len(records) > output.MaxDetailRows {
			output.Info("... %d more (use --output json for all rows)", len(records)-output.MaxDetailRows)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
	addRequestFlags(searchCmd)
}
