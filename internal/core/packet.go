// Package core defines core data structures with zero external dependencies.
package core

import "fmt"

// L4Protocol selects the transport layer of a built packet.
type L4Protocol int

const (
	ProtocolTCP L4Protocol = iota
	ProtocolUDP
)

// String returns the upper-case protocol name used in text output.
func (p L4Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	default:
		return fmt.Sprintf("L4Protocol(%d)", int(p))
	}
}

// Number returns the IPv4 protocol number.
func (p L4Protocol) Number() uint8 {
	if p == ProtocolUDP {
		return ProtocolNumberUDP
	}
	return ProtocolNumberTCP
}

// ParseL4Protocol maps "tcp" or "udp" to an L4Protocol. Any other name,
// including upper-case spellings, falls back to TCP.
func ParseL4Protocol(name string) L4Protocol {
	if name == "udp" {
		return ProtocolUDP
	}
	return ProtocolTCP
}

// L4 is the transport section of a NetworkPacket. It is implemented only by
// *TCPHeader and *UDPHeader; callers type-switch over those two.
type L4 interface {
	// Protocol reports which variant this is.
	Protocol() L4Protocol
	// PayloadLen is the length of the application payload.
	PayloadLen() int

	isL4()
}

func (*TCPHeader) isL4() {}
func (*UDPHeader) isL4() {}

func (*TCPHeader) Protocol() L4Protocol { return ProtocolTCP }
func (*UDPHeader) Protocol() L4Protocol { return ProtocolUDP }

func (h *TCPHeader) PayloadLen() int { return len(h.Payload) }
func (h *UDPHeader) PayloadLen() int { return len(h.Payload) }

// NetworkPacket is a fully built Ethernet/IPv4/L4 frame. It is not modified
// after construction and may be shared between goroutines for reading.
type NetworkPacket struct {
	Ethernet EthernetHeader
	IPv4     IPv4Header
	L4       L4
}
