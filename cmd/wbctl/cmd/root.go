// Package cmd implements the wbctl CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	apiclient "github.com/donaldgifford/wb-seller-tracker/internal/api/client"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:     "wbctl",
		Version: Version,
		Short:   "CLI client for WB Seller Tracker",
		Long: "wbctl is a command-line client for the WB Seller Tracker API.\n" +
			"It shows tracked tasks, balance history and rate limiter state,\n" +
			"and triggers scheduler jobs from the terminal.",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			switch o := viper.GetString("output"); o {
			case "table", "json":
				return nil
			default:
				return fmt.Errorf("unknown output format %q (want table or json)", o)
			}
		},
	}
)

// Root returns the root cobra command for documentation generation.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().
		StringVar(&cfgFile, "config", "", "config file (default $HOME/.wbctl.yaml)")
	rootCmd.PersistentFlags().
		String("server", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().
		String("output", "table", "output format (table, json)")
	rootCmd.PersistentFlags().
		Duration("timeout", apiclient.DefaultTimeout, "per-request timeout")

	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))
	cobra.CheckErr(viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output")))
	cobra.CheckErr(viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout")))

	rootCmd.AddCommand(tasksCmd())
	rootCmd.AddCommand(balanceCmd())
	rootCmd.AddCommand(limitsCmd())
	rootCmd.AddCommand(jobsCmd())
	rootCmd.AddCommand(stateCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".wbctl")
	}

	viper.SetEnvPrefix("WBCTL")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *apiclient.Client {
	return apiclient.New(viper.GetString("server"),
		apiclient.WithTimeout(viper.GetDuration("timeout")),
		apiclient.WithUserAgent("wbctl/"+Version),
	)
}

func jsonOutput() bool {
	return viper.GetString("output") == "json"
}
