package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugo-lorenzo-mato/netdiag/internal/config"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
	jsonOut   bool

	// Version info - set via SetVersion()
	appVersion string
	appCommit  string
	appDate    string

	// Loaded during PersistentPreRunE; commands read it instead of viper.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "netdiag",
	Short: "Network diagnosis toolkit with process supervision and auto-recovery",
	Long: `netdiag diagnoses network targets (DNS, TCP, TLS, HTTP, path trace) and
supervises the external tools it spawns. A resource monitor watches file
descriptors, log handlers and child processes, raises threshold alerts, and
an auto-recovery engine remediates resource leaks before they take the
service down.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initConfig()
	},
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func SetVersion(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: .netdiag.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto",
		"log format (auto, text, json)")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false,
		"emit machine-readable JSON instead of styled output")

	// Bind flags to viper (errors are nil when flag exists)
	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() error {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}

	loaded, err := loader.Load()
	if err != nil {
		return err
	}
	if err := config.NewValidator().Validate(loaded); err != nil {
		return err
	}
	cfg = loaded
	return nil
}
