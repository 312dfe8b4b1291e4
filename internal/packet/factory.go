package packet

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/parse"
)

// Defaults applied by FromConstructionParams.
const (
	DefaultSrcPort uint16 = 12345
	DefaultDstPort uint16 = 80
)

// Factory holds the per-layer builders for one address pair and bitfield.
type Factory struct {
	ethernet EthernetBuilder
	ipv4     IPv4Builder
	tcp      TCPBuilder
	udp      UDPBuilder
}

// NewFactory returns a Factory for packets from src to dst.
func NewFactory(src, dst core.IPv4Addr, bitfield uint8) *Factory {
	return &Factory{
		ipv4: IPv4Builder{Src: src, Dst: dst, Bitfield: bitfield},
		tcp:  TCPBuilder{Src: src, Dst: dst},
		udp:  UDPBuilder{Src: src, Dst: dst},
	}
}

// Build constructs the transport section first, derives the IPv4 header
// from it, then adds the Ethernet header.
func (f *Factory) Build(srcMAC, dstMAC core.MAC, srcPort, dstPort uint16, proto core.L4Protocol, payload []byte) (*core.NetworkPacket, error) {
	var (
		l4  core.L4
		err error
	)
	switch proto {
	case core.ProtocolUDP:
		l4, err = f.udp.Build(srcPort, dstPort, payload)
	default:
		l4, err = f.tcp.Build(srcPort, dstPort, payload)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s header: %w", proto, err)
	}

	ip, err := f.ipv4.Build(l4)
	if err != nil {
		return nil, fmt.Errorf("build ipv4 header: %w", err)
	}

	return &core.NetworkPacket{
		Ethernet: f.ethernet.Build(srcMAC, dstMAC),
		IPv4:     ip,
		L4:       l4,
	}, nil
}

// Params is a fully resolved packet description.
type Params struct {
	SrcIP      core.IPv4Addr
	DstIP      core.IPv4Addr
	SrcMAC     core.MAC
	DstMAC     core.MAC
	SrcPort    uint16
	DstPort    uint16
	Protocol   core.L4Protocol
	IPBitfield uint8
	Payload    []byte // nil means an empty payload
}

// Build constructs the packet described by p.
func (p Params) Build() (*core.NetworkPacket, error) {
	return NewFactory(p.SrcIP, p.DstIP, p.IPBitfield).
		Build(p.SrcMAC, p.DstMAC, p.SrcPort, p.DstPort, p.Protocol, p.Payload)
}

// ConstructionParams is the partially specified form accepted from callers
// such as the CLI. Nil pointers and empty strings select defaults; the two
// IP addresses are required.
type ConstructionParams struct {
	SrcIP      string
	DstIP      string
	SrcMAC     *core.MAC
	DstMAC     *core.MAC
	SrcPort    *uint16
	DstPort    *uint16
	Protocol   string // "tcp" or "udp"; anything else selects TCP
	IPBitfield *uint8
	Payload    []byte
}

// FromConstructionParams validates cp and fills in defaults.
func FromConstructionParams(cp ConstructionParams) (Params, error) {
	if cp.SrcIP == "" {
		return Params{}, &core.MissingRequiredFieldError{Name: "src_ip"}
	}
	src, err := parse.IPv4(cp.SrcIP)
	if err != nil {
		return Params{}, err
	}
	if cp.DstIP == "" {
		return Params{}, &core.MissingRequiredFieldError{Name: "dst_ip"}
	}
	dst, err := parse.IPv4(cp.DstIP)
	if err != nil {
		return Params{}, err
	}

	p := Params{
		SrcIP:    src,
		DstIP:    dst,
		DstMAC:   core.BroadcastMAC,
		SrcPort:  DefaultSrcPort,
		DstPort:  DefaultDstPort,
		Protocol: core.ParseL4Protocol(cp.Protocol),
		Payload:  cp.Payload,
	}
	if cp.SrcMAC != nil {
		p.SrcMAC = *cp.SrcMAC
	}
	if cp.DstMAC != nil {
		p.DstMAC = *cp.DstMAC
	}
	if cp.SrcPort != nil {
		p.SrcPort = *cp.SrcPort
	}
	if cp.DstPort != nil {
		p.DstPort = *cp.DstPort
	}
	if cp.IPBitfield != nil {
		p.IPBitfield = *cp.IPBitfield
	}
	return p, nil
}

// BuildMany builds every entry of params concurrently with at most workers
// goroutines. Results keep the order of params; the first error cancels the
// remaining builds.
func BuildMany(ctx context.Context, params []Params, workers int) ([]*core.NetworkPacket, error) {
	out := make([]*core.NetworkPacket, len(params))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i := range params {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			pkt, err := params[i].Build()
			if err != nil {
				return fmt.Errorf("packet %d: %w", i, err)
			}
			out[i] = pkt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
