package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/core/decoder"
	"firestige.xyz/pktforge/internal/filter"
	"firestige.xyz/pktforge/internal/format"
	"firestige.xyz/pktforge/internal/log"
)

type readOptions struct {
	Protocol       string
	Port           uint16
	Output         string // summary / json / yaml
	Dump           bool
	IncludeRawData bool
}

var readFlags readOptions

var readCmd = &cobra.Command{
	Use:   "read <file.pcap>",
	Short: "Read, filter and verify a pcap capture",
	Long: `Read the records of a pcap capture, decode them and verify their checksums.

Examples:
  pktforge read out.pcap
  pktforge read out.pcap --proto udp --port 53
  pktforge read out.pcap -o yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("raw") {
			readFlags.IncludeRawData = cfg.Output.IncludeRawData
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}
		return runRead(data, readFlags, cmd.OutOrStdout())
	},
}

func init() {
	f := readCmd.Flags()
	f.StringVar(&readFlags.Protocol, "proto", "", "keep only tcp or udp records")
	f.Uint16Var(&readFlags.Port, "port", 0, "keep only records with this source or destination port")
	f.StringVarP(&readFlags.Output, "output", "o", "summary", "output format (summary/json/yaml)")
	f.BoolVar(&readFlags.Dump, "dump", false, "print a layer dump of each record")
	f.BoolVar(&readFlags.IncludeRawData, "raw", true, "include raw_data in json/yaml output")
}

// runRead decodes every record of a pcap capture that passes the filter.
// Records that fail to decode are reported and skipped.
func runRead(data []byte, opts readOptions, out io.Writer) error {
	logger := log.GetLogger()

	r, err := format.NewFactory().NewReader(format.TypePcap, data)
	if err != nil {
		return err
	}

	var textType format.Type
	summary := opts.Output == "" || opts.Output == "summary"
	if !summary {
		if textType, err = format.ParseType(opts.Output); err != nil {
			return err
		}
		if textType == format.TypePcap {
			return fmt.Errorf("%w: read output must be summary/json/yaml", core.ErrUnsupportedFormat)
		}
	}

	var chain *filter.Chain
	if opts.Protocol != "" || opts.Port != 0 {
		f, err := filter.Compile(filter.Expr{Protocol: opts.Protocol, Port: opts.Port})
		if err != nil {
			return err
		}
		chain = filter.NewChain(f)
	}

	var pkts []*core.NetworkPacket
	records, bad := 0, 0
	for r.HasMorePackets() {
		frame, err := r.ReadNextPacket()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("record %d: %w", records, err)
		}
		records++

		if chain != nil {
			ok, err := chain.Match(frame)
			if err != nil {
				return fmt.Errorf("record %d: filter: %w", records, err)
			}
			if !ok {
				continue
			}
		}

		pkt, report, err := decoder.Verify(frame)
		if err != nil {
			logger.WithError(err).Warnf("record %d: skipped", records)
			if summary {
				fmt.Fprintf(out, "#%d decode error: %v\n", records, err)
			}
			continue
		}
		if !report.Valid() {
			bad++
		}

		if summary {
			fmt.Fprintf(out, "#%d %s len=%d checksums=%s\n", records, describe(pkt), len(frame), report)
		}
		if opts.Dump {
			fmt.Fprint(out, gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default).Dump())
		}
		pkts = append(pkts, pkt)
	}

	if !summary {
		f := format.NewFactory()
		f.IncludeRawData = opts.IncludeRawData
		f.Indent = "  "
		encoded, err := f.WritePackets(pkts, textType)
		if err != nil {
			return err
		}
		if _, err := out.Write(encoded); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "%d record(s), %d shown, %d with bad checksums\n", records, len(pkts), bad)
	}

	logger.WithField("records", records).Debugf("read %d packet(s)", len(pkts))
	return nil
}
