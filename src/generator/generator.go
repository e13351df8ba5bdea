package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mmdp_instances/src/config"
	"mmdp_instances/src/utils"
)

var version = "0.1.0-dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mmdpgen [N]",
		Short: "Benchmark instance generator for the Max-Mean Dispersion Problem",
		Long: `mmdpgen writes the II, IV and MMDPI benchmark sets of the (weighted)
Max-Mean Dispersion Problem: ten pseudo-random symmetric distance matrices
per invocation, optionally with node weights.

"mmdpgen N" is short for "mmdpgen generate N" with the settings of the
configuration file and environment.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runGenerate(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable logs")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newGenerateCmd(),
		newInspectCmd(),
		newCatalogCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "mmdpgen version %s\n", version)
		},
	}
}

// loadConfig resolves defaults, the --config file and the environment, then
// configures logging from the result and the logging flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	silent, _ := cmd.Flags().GetBool("silent")
	utils.SetupLogger(cmd.ErrOrStderr(), cfg.Logging.Level, silent)
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
