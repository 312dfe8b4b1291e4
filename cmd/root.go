// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/config"
	"firestige.xyz/pktforge/internal/log"
)

var (
	// Global flags
	configFile string
	logLevel   string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pktforge",
	Short: "pktforge - synthetic Ethernet/IPv4/TCP/UDP packet builder",
	Long: `pktforge builds complete Ethernet II frames carrying IPv4 and TCP or UDP
with correct lengths and checksums.

Frames can be sent through a raw socket, written to a pcap capture or
dumped as JSON/YAML, and capture files can be read back, filtered and
checksum-verified.`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (defaults and PKTFORGE_* env when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"override log level (trace/debug/info/warn/error)")

	// Add subcommands
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(validateCmd)
}

// loadConfig loads the global config, applies --log-level and initializes
// logging.
func loadConfig() (*config.GlobalConfig, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return nil, err
		}
	}
	if err := log.Init(cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, nil
}
