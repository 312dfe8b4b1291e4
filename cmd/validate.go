package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Load the configuration file given with --config, apply PKTFORGE_* env
overrides and defaults, and report whether it is valid.

Examples:
  pktforge validate -c pktforge.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile, cmd.OutOrStdout())
	},
}

func runValidate(path string, out io.Writer) error {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(out, "INVALID: %v\n", err)
		return err
	}

	name := path
	if name == "" {
		name = "<defaults>"
	}
	ifaces := cfg.Send.Interface
	if ifaces == "" {
		ifaces = strings.Join(cfg.Send.Interfaces, ",")
	}
	fmt.Fprintf(out, "VALID: %s (log=%s protocol=%s ports=%d->%d interfaces=%s)\n",
		name,
		cfg.Log.Level,
		cfg.Packet.Protocol,
		cfg.Packet.SrcPort,
		cfg.Packet.DstPort,
		ifaces,
	)
	return nil
}
