package packet

import (
	"fmt"

	"firestige.xyz/pktforge/internal/core"
)

// Assemble serializes p into a complete Ethernet frame: the transport
// section is packed first, wrapped by IPv4, then by Ethernet.
func Assemble(p *core.NetworkPacket) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", core.ErrUnsupportedProto)
	}
	l4, err := PackL4(p.L4)
	if err != nil {
		return nil, fmt.Errorf("pack l4: %w", err)
	}
	ip, err := PackIPv4(p.IPv4, l4)
	if err != nil {
		return nil, fmt.Errorf("pack ipv4: %w", err)
	}
	frame, err := PackEthernet(p.Ethernet, ip)
	if err != nil {
		return nil, fmt.Errorf("pack ethernet: %w", err)
	}
	return frame, nil
}

// Size returns len(Assemble(p)) without serializing.
func Size(p *core.NetworkPacket) int {
	return ethernetHeaderLen + ipv4HeaderLen + len(p.IPv4.Options) + l4Len(p.L4)
}
