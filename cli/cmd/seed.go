package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/fwlens/cli/internal/seeder"
	"github.com/telhawk-systems/fwlens/cli/pkg/output"
	"github.com/telhawk-systems/fwlens/common/opensearch"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load demo FortiGate events into OpenSearch",
	Long: `Generate FortiGate-shaped traffic, VPN and admin events and bulk-index
them into daily indices (<index_prefix>-YYYY.MM.DD). A burst of failed admin
logins from one address is added so every finding can be demonstrated.`,
	Example: `  fwlens seed --count 2000 --days 7
  fwlens seed --failed-burst-ip 198.51.100.23 --failed-burst-size 30
  fwlens seed --failed-burst-ip "" --seed 42`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverCfg, err := loadServerConfig(cmd)
		if err != nil {
			return err
		}

		opts := seeder.DefaultOptions()
		opts.IndexPrefix = serverCfg.OpenSearch.IndexPrefix
		opts.Count, _ = cmd.Flags().GetInt("count")
		opts.Days, _ = cmd.Flags().GetInt("days")
		opts.FailedBurstIP, _ = cmd.Flags().GetString("failed-burst-ip")
		opts.FailedBurstSize, _ = cmd.Flags().GetInt("failed-burst-size")
		opts.HighSeverityRate, _ = cmd.Flags().GetFloat64("high-severity-rate")
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
		batchSize, _ := cmd.Flags().GetInt("batch-size")

		osClient, err := opensearch.Connect(cmd.Context(), serverCfg.OpenSearch)
		if err != nil {
			return err
		}

		docs := seeder.NewGenerator(opts).Generate()
		logger.Info("Seeding events",
			slog.Int("events", len(docs)),
			slog.String("index_prefix", opts.IndexPrefix),
			slog.Int("days", opts.Days))

		res, err := seeder.NewRunner(osClient, batchSize, logger).Run(cmd.Context(), docs)
		if err != nil {
			return fmt.Errorf("seeding failed after %d events: %w", res.Indexed, err)
		}

		format, _ := cmd.Flags().GetString("output")
		if handled, err := output.Structured(format, res); handled {
			return err
		}

		output.Success("Indexed %d events into %s-*", res.Indexed, opts.IndexPrefix)
		if res.Failed > 0 {
			output.Warn("%d events failed", res.Failed)
			for i, e := range res.Errors {
				if i == 5 {
					break
				}
				output.Warn("  %s", e)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	defaults := seeder.DefaultOptions()
	seedCmd.Flags().Int("count", defaults.Count, "number of background events")
	seedCmd.Flags().Int("days", defaults.Days, "spread events over the last N days")
	seedCmd.Flags().String("failed-burst-ip", defaults.FailedBurstIP, "source IP of the failed-login burst (empty to skip)")
	seedCmd.Flags().Int("failed-burst-size", defaults.FailedBurstSize, "failed logins in the burst")
	seedCmd.Flags().Float64("high-severity-rate", defaults.HighSeverityRate, "share of background events with severity high")
	seedCmd.Flags().Int64("seed", 0, "random seed (0 for a random run)")
	seedCmd.Flags().Int("batch-size", 500, "documents per bulk request")
	seedCmd.Flags().String("server-config", "", "server config file with the OpenSearch settings")
}
