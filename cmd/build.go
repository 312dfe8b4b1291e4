package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/config"
	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/format"
	"firestige.xyz/pktforge/internal/log"
	"firestige.xyz/pktforge/internal/packet"
	"firestige.xyz/pktforge/internal/parse"
	"firestige.xyz/pktforge/internal/sender"
)

// SenderOpener opens the sink frames are sent to. sender.Open in
// production, a mock in tests.
type SenderOpener func(opts sender.Options) (sender.Sender, error)

var buildFlags struct {
	srcIP, dstIP     string
	srcMAC, dstMAC   string
	srcPort, dstPort uint16
	protocol         string
	bitfield         string
	payload          string
	payloadHex       string
	count            int
	timeoutMS        int
	retries          int
	debugFile        string
	debugFormat      string
	iface            string
	dryRun           bool
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build packets and send them or write them to a file",
	Long: `Build Ethernet/IPv4/TCP or UDP frames and send them through a raw socket.

Flags override the packet/send/output sections of the config file.
With --count N, N packets are built with consecutive source ports.

Examples:
  pktforge build -i 192.168.1.100 -d 192.168.1.1 -r -f out.pcap -g pcap
  pktforge build -i 10.0.0.1 -d 10.0.0.2 -l udp -p 53 --payload-hex "DE AD BE EF"
  pktforge build -i 10.0.0.1 -d 10.0.0.2 --interface eth1 --count 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		applyBuildFlags(cmd, cfg)
		if err := cfg.ValidateAndApplyDefaults(); err != nil {
			return err
		}
		return runBuild(cmd.Context(), cfg, sender.Open, cmd.OutOrStdout())
	},
}

func init() {
	f := buildCmd.Flags()
	f.StringVarP(&buildFlags.srcIP, "src-ip", "i", "", "source IPv4 address (required)")
	f.StringVarP(&buildFlags.dstIP, "dst-ip", "d", "", "destination IPv4 address (required)")
	f.Uint16Var(&buildFlags.srcPort, "src-port", packet.DefaultSrcPort, "source port")
	f.Uint16VarP(&buildFlags.dstPort, "dst-port", "p", packet.DefaultDstPort, "destination port")
	f.StringVarP(&buildFlags.srcMAC, "src-mac", "s", "", "source MAC (default 00:00:00:00:00:00)")
	f.StringVarP(&buildFlags.dstMAC, "dst-mac", "m", "", "destination MAC (default FF:FF:FF:FF:FF:FF)")
	f.StringVarP(&buildFlags.protocol, "l4-protocol", "l", "tcp", "transport protocol (tcp/udp)")
	f.StringVarP(&buildFlags.bitfield, "ip-bitfield", "b", "0x00", "IPv4 flags/fragment byte in hex")
	f.StringVar(&buildFlags.payload, "payload", "", "payload text")
	f.StringVar(&buildFlags.payloadHex, "payload-hex", "", "payload as hex bytes, e.g. \"DE AD BE EF\"")
	f.IntVar(&buildFlags.count, "count", 1, "number of packets to build")
	f.IntVarP(&buildFlags.timeoutMS, "timeout-ms", "t", 1000, "socket send timeout in milliseconds")
	f.IntVar(&buildFlags.retries, "retries", 3, "retries for transient send errors")
	f.StringVarP(&buildFlags.debugFile, "debug-file", "f", "", "write the packets to this file")
	f.StringVarP(&buildFlags.debugFormat, "debug-format", "g", "json", "debug file format (pcap/json/yaml)")
	f.StringVar(&buildFlags.iface, "interface", "", "interface to send on (default: first up of send.interfaces)")
	f.BoolVarP(&buildFlags.dryRun, "dry-run", "r", false, "build without sending")
}

// applyBuildFlags copies explicitly set flags over the loaded config.
func applyBuildFlags(cmd *cobra.Command, cfg *config.GlobalConfig) {
	fs := cmd.Flags()
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("src-ip", func() { cfg.Packet.SrcIP = buildFlags.srcIP })
	set("dst-ip", func() { cfg.Packet.DstIP = buildFlags.dstIP })
	set("src-port", func() { cfg.Packet.SrcPort = buildFlags.srcPort })
	set("dst-port", func() { cfg.Packet.DstPort = buildFlags.dstPort })
	set("src-mac", func() { cfg.Packet.SrcMAC = buildFlags.srcMAC })
	set("dst-mac", func() { cfg.Packet.DstMAC = buildFlags.dstMAC })
	set("l4-protocol", func() { cfg.Packet.Protocol = buildFlags.protocol })
	set("ip-bitfield", func() { cfg.Packet.IPBitfield = buildFlags.bitfield })
	set("payload", func() { cfg.Packet.Payload = buildFlags.payload })
	set("payload-hex", func() { cfg.Packet.PayloadHex = buildFlags.payloadHex })
	set("count", func() { cfg.Send.Count = buildFlags.count })
	set("timeout-ms", func() { cfg.Send.TimeoutMS = buildFlags.timeoutMS })
	set("retries", func() { cfg.Send.Retries = buildFlags.retries })
	set("debug-file", func() { cfg.Output.DebugFile = buildFlags.debugFile })
	set("debug-format", func() { cfg.Output.DebugFormat = buildFlags.debugFormat })
	set("interface", func() { cfg.Send.Interface = buildFlags.iface })
	set("dry-run", func() { cfg.Send.DryRun = buildFlags.dryRun })
}

// constructionParams turns the packet section into factory input.
func constructionParams(pc config.PacketConfig) (packet.ConstructionParams, error) {
	cp := packet.ConstructionParams{
		SrcIP:    pc.SrcIP,
		DstIP:    pc.DstIP,
		SrcPort:  &pc.SrcPort,
		DstPort:  &pc.DstPort,
		Protocol: pc.Protocol,
		Payload:  []byte(pc.Payload),
	}
	if pc.SrcMAC != "" {
		mac, err := parse.MAC(pc.SrcMAC)
		if err != nil {
			return cp, err
		}
		cp.SrcMAC = &mac
	}
	if pc.DstMAC != "" {
		mac, err := parse.MAC(pc.DstMAC)
		if err != nil {
			return cp, err
		}
		cp.DstMAC = &mac
	}
	bitfield, err := parse.Hex(pc.IPBitfield)
	if err != nil {
		return cp, err
	}
	cp.IPBitfield = &bitfield
	if pc.PayloadHex != "" {
		payload, err := parse.HexBytes(pc.PayloadHex)
		if err != nil {
			return cp, err
		}
		cp.Payload = payload
	}
	return cp, nil
}

// runBuild builds cfg.Send.Count packets, writes the debug file if one is
// configured and sends the frames unless dry_run is set.
func runBuild(ctx context.Context, cfg *config.GlobalConfig, open SenderOpener, out io.Writer) error {
	logger := log.GetLogger()

	cp, err := constructionParams(cfg.Packet)
	if err != nil {
		return err
	}
	base, err := packet.FromConstructionParams(cp)
	if err != nil {
		return err
	}

	params := make([]packet.Params, cfg.Send.Count)
	for i := range params {
		params[i] = base
		params[i].SrcPort = base.SrcPort + uint16(i)
	}
	pkts, err := packet.BuildMany(ctx, params, cfg.Send.Workers)
	if err != nil {
		return fmt.Errorf("failed to build packets: %w", err)
	}

	frames := make([][]byte, len(pkts))
	for i, p := range pkts {
		if frames[i], err = packet.Assemble(p); err != nil {
			return fmt.Errorf("failed to assemble packet %d: %w", i, err)
		}
		fmt.Fprintf(out, "%s len=%d\n", describe(p), len(frames[i]))
		if logger.IsDebugEnabled() {
			logger.WithField("packet", i).Debugf("raw: %s", parse.EncodeHex(frames[i]))
		}
	}

	if cfg.Output.DebugFile != "" {
		if err := writeDebugFile(cfg.Output, pkts); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d packet(s) to %s\n", len(pkts), cfg.Output.DebugFile)
	}

	if cfg.Send.DryRun {
		fmt.Fprintln(out, "dry run: nothing sent")
		return nil
	}

	iface := cfg.Send.Interface
	if iface == "" {
		if iface, err = sender.SelectInterface(cfg.Send.Interfaces, nil); err != nil {
			return err
		}
	}
	raw, err := open(sender.Options{
		Interface: iface,
		Timeout:   time.Duration(cfg.Send.TimeoutMS) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("failed to open sender on %s: %w", iface, err)
	}
	s := sender.NewRetrying(raw, cfg.Send.Retries)
	defer s.Close()

	total := 0
	for i, frame := range frames {
		n, err := s.Send(ctx, frame)
		if err != nil {
			return fmt.Errorf("failed to send packet %d on %s: %w", i, iface, err)
		}
		total += n
	}
	logger.WithFields(map[string]interface{}{"interface": iface, "packets": len(frames)}).Infof("sent %d bytes", total)
	fmt.Fprintf(out, "sent %d packet(s), %d bytes on %s\n", len(frames), total, iface)
	return nil
}

func writeDebugFile(oc config.OutputConfig, pkts []*core.NetworkPacket) error {
	t, err := format.ParseType(oc.DebugFormat)
	if err != nil {
		return err
	}
	f := &format.Factory{IncludeRawData: oc.IncludeRawData, Indent: oc.Indent}
	data, err := f.WritePackets(pkts, t)
	if err != nil {
		return fmt.Errorf("failed to encode %s output: %w", t, err)
	}
	if err := os.WriteFile(oc.DebugFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", oc.DebugFile, err)
	}
	return nil
}

// describe renders a one-line summary of p.
func describe(p *core.NetworkPacket) string {
	switch l4 := p.L4.(type) {
	case *core.TCPHeader:
		return fmt.Sprintf("TCP %s:%d > %s:%d flags=0x%03X seq=%d win=%d payload=%d",
			p.IPv4.SrcAddr, l4.SrcPort, p.IPv4.DstAddr, l4.DstPort,
			l4.Flags, l4.SequenceNumber, l4.Window, len(l4.Payload))
	case *core.UDPHeader:
		return fmt.Sprintf("UDP %s:%d > %s:%d payload=%d",
			p.IPv4.SrcAddr, l4.SrcPort, p.IPv4.DstAddr, l4.DstPort, len(l4.Payload))
	default:
		return fmt.Sprintf("IPv4 %s > %s proto=%d", p.IPv4.SrcAddr, p.IPv4.DstAddr, p.IPv4.Protocol)
	}
}
