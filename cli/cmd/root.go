package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/fwlens/cli/internal/config"
	"github.com/telhawk-systems/fwlens/cli/pkg/output"
	"github.com/telhawk-systems/fwlens/common/logging"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fwlens",
	Short: "FortiGate log analytics CLI",
	Long: `fwlens searches FortiGate firewall logs stored in OpenSearch, normalizes
them and reports high-severity alerts, failed authentication bursts and
abnormal per-IP traffic volume.

Log in to an fwlens API server, or run the analysis directly against
OpenSearch with --direct.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command, printing any error to stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		output.Error("%v", err)
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.fwlens/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "", "profile to use (default: current profile)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log debug output to stderr")
}

func initConfig() {
	level := slog.LevelWarn
	if verbose, _ := rootCmd.PersistentFlags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	logger = logging.NewWithWriter(os.Stderr, level, "text")

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// activeProfile returns the profile named by --profile, or the current one.
func activeProfile(cmd *cobra.Command) (string, *config.Profile, error) {
	name, _ := cmd.Flags().GetString("profile")
	if name == "" {
		name = cfg.CurrentProfile
	}
	p, err := cfg.GetProfile(name)
	if err != nil {
		return name, nil, fmt.Errorf("not logged in (run 'fwlens login'): %w", err)
	}
	return name, p, nil
}
