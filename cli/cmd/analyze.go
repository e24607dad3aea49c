package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/fwlens/analytics"
	"github.com/telhawk-systems/fwlens/cli/internal/client"
	"github.com/telhawk-systems/fwlens/cli/pkg/output"
	commonconfig "github.com/telhawk-systems/fwlens/common/config"
	"github.com/telhawk-systems/fwlens/common/logging"
	"github.com/telhawk-systems/fwlens/common/opensearch"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [query]",
	Short: "Analyze recent firewall logs",
	Long: `Search FortiGate logs and report high-severity alerts, failed
authentication attempts and abnormal per-IP traffic volume.

By default the analysis runs on the API server of the active profile. With
--direct it runs in-process against the OpenSearch cluster described by the
server config file.`,
	Example: `  fwlens analyze
  fwlens analyze "action:deny" --days 7 --limit 5000
  fwlens analyze failed --output json
  fwlens analyze --direct --server-config /etc/fwlens/config.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := requestFromFlags(cmd, args)

		var (
			report *analytics.Report
			err    error
		)
		if direct, _ := cmd.Flags().GetBool("direct"); direct {
			report, err = analyzeDirect(cmd.Context(), cmd, req)
		} else {
			report, err = analyzeRemote(cmd.Context(), cmd, req)
		}
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		if handled, err := output.Structured(format, report); handled {
			return err
		}

		output.Report(report)
		if showRecords, _ := cmd.Flags().GetBool("records"); showRecords && !report.Empty() {
			fmt.Fprintln(output.Stdout)
			output.RecordsTable(report.Records).Render()
		}
		return nil
	},
}

func requestFromFlags(cmd *cobra.Command, args []string) analytics.SearchRequest {
	var req analytics.SearchRequest
	if len(args) > 0 {
		req.Query = args[0]
	}
	req.Days, _ = cmd.Flags().GetInt("days")
	req.Limit, _ = cmd.Flags().GetInt("limit")
	return req
}

func analyzeRemote(ctx context.Context, cmd *cobra.Command, req analytics.SearchRequest) (*analytics.Report, error) {
	_, p, err := activeProfile(cmd)
	if err != nil {
		return nil, err
	}
	if p.Expired(time.Now()) {
		return nil, fmt.Errorf("session expired, run 'fwlens login'")
	}

	report, err := client.New(p.APIURL).Analyze(ctx, p.AccessToken, req)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			return nil, fmt.Errorf("session rejected by server, run 'fwlens login': %w", err)
		}
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	return report, nil
}

// analyzeDirect runs the same pipeline the API runs, in-process.
func analyzeDirect(ctx context.Context, cmd *cobra.Command, req analytics.SearchRequest) (*analytics.Report, error) {
	serverCfg, err := loadServerConfig(cmd)
	if err != nil {
		return nil, err
	}

	osClient, err := opensearch.New(serverCfg.OpenSearch)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report, err := serverCfg.Pipeline(osClient).Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("analysis failed: %w", err)
	}

	logger.Debug("Direct analysis complete",
		logging.AnalysisID(report.ID),
		logging.Index(report.IndexPattern),
		logging.Records(len(report.Records)),
		logging.Findings(len(report.Findings)),
		logging.Duration(time.Since(start).Milliseconds()))
	return report, nil
}

func loadServerConfig(cmd *cobra.Command) (*commonconfig.Config, error) {
	path, _ := cmd.Flags().GetString("server-config")
	serverCfg, err := commonconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	return serverCfg, nil
}

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().Int("days", 0, "lookback in days, 1-7 (default 3)")
	cmd.Flags().Int("limit", 0, "maximum records, 100-5000 (default 1000)")
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	addRequestFlags(analyzeCmd)
	analyzeCmd.Flags().Bool("direct", false, "query OpenSearch directly instead of the API")
	analyzeCmd.Flags().String("server-config", "", "server config file for --direct (default: $FWLENS_CONFIG_DIR/config.yaml)")
	analyzeCmd.Flags().Bool("records", false, "also print the first normalized records")
}
