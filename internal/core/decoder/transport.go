// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/pktforge/internal/core"
)

const (
	udpHeaderLen    = 8
	tcpHeaderMinLen = 20

	// Protocol numbers
	protocolTCP = 6
	protocolUDP = 17
)

// decodeTransport decodes the TCP or UDP section.
func decodeTransport(data []byte, protocol uint8) (core.L4, error) {
	switch protocol {
	case protocolTCP:
		return decodeTCP(data)
	case protocolUDP:
		return decodeUDP(data)
	default:
		// Unsupported transport protocol (e.g., SCTP, ICMP)
		return nil, core.ErrUnsupportedProto
	}
}

// decodeUDP decodes UDP header and payload.
func decodeUDP(data []byte) (*core.UDPHeader, error) {
	if len(data) < udpHeaderLen {
		return nil, core.ErrPacketTooShort
	}

	udp := &core.UDPHeader{}

	// Source Port (2 bytes at offset 0)
	udp.SrcPort = binary.BigEndian.Uint16(data[0:2])

	// Destination Port (2 bytes at offset 2)
	udp.DstPort = binary.BigEndian.Uint16(data[2:4])

	// Length (2 bytes at offset 4) - includes header and data
	udp.Length = binary.BigEndian.Uint16(data[4:6])
	if int(udp.Length) < udpHeaderLen || int(udp.Length) > len(data) {
		return nil, core.ErrPacketTooShort
	}

	// Checksum (2 bytes at offset 6)
	udp.Checksum = binary.BigEndian.Uint16(data[6:8])

	udp.Payload = data[udpHeaderLen:udp.Length]
	return udp, nil
}

// decodeTCP decodes TCP header and payload.
func decodeTCP(data []byte) (*core.TCPHeader, error) {
	if len(data) < tcpHeaderMinLen {
		return nil, core.ErrPacketTooShort
	}

	tcp := &core.TCPHeader{}

	// Source Port (2 bytes at offset 0)
	tcp.SrcPort = binary.BigEndian.Uint16(data[0:2])

	// Destination Port (2 bytes at offset 2)
	tcp.DstPort = binary.BigEndian.Uint16(data[2:4])

	// Sequence Number (4 bytes at offset 4)
	tcp.SequenceNumber = binary.BigEndian.Uint32(data[4:8])

	// Acknowledgment Number (4 bytes at offset 8)
	tcp.AckNumber = binary.BigEndian.Uint32(data[8:12])

	// | data offset (4) | reserved (3) | flags (9) |
	offsetFlags := binary.BigEndian.Uint16(data[12:14])
	tcp.DataOffset = uint8(offsetFlags >> 12)
	tcp.Reserved = uint8(offsetFlags>>9) & 0x07
	tcp.Flags = offsetFlags & 0x1FF

	headerLen := int(tcp.DataOffset) * 4 // Data offset is in 32-bit words
	if headerLen < tcpHeaderMinLen || len(data) < headerLen {
		return nil, core.ErrPacketTooShort
	}

	tcp.Window = binary.BigEndian.Uint16(data[14:16])
	tcp.Checksum = binary.BigEndian.Uint16(data[16:18])
	tcp.UrgentPointer = binary.BigEndian.Uint16(data[18:20])

	if headerLen > tcpHeaderMinLen {
		tcp.Options = data[tcpHeaderMinLen:headerLen]
	}
	tcp.Payload = data[headerLen:]
	return tcp, nil
}
