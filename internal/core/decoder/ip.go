// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/pktforge/internal/core"
)

const ipv4HeaderMinLen = 20

// decodeIPv4 decodes an IPv4 header including options.
// Returns the header and the L4 bytes bounded by Total Length.
func decodeIPv4(data []byte) (core.IPv4Header, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPv4Header{}, nil, core.ErrPacketTooShort
	}

	version := data[0] >> 4
	if version != 4 {
		return core.IPv4Header{}, nil, core.ErrUnsupportedProto
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte
	ihl := data[0] & 0x0F
	headerLen := int(ihl) * 4 // IHL is in 32-bit words
	if headerLen < ipv4HeaderMinLen || len(data) < headerLen {
		return core.IPv4Header{}, nil, core.ErrPacketTooShort
	}

	ip := core.IPv4Header{
		Version: version,
		IHL:     ihl,
		DSCP:    data[1],
	}

	// Total Length (2 bytes at offset 2)
	ip.TotalLength = binary.BigEndian.Uint16(data[2:4])
	if int(ip.TotalLength) < headerLen || int(ip.TotalLength) > len(data) {
		return ip, nil, core.ErrPacketTooShort
	}

	// Identification (2 bytes at offset 4)
	ip.Identification = binary.BigEndian.Uint16(data[4:6])

	// Flags (3 bits) and Fragment Offset (13 bits) at offset 6
	flagsOffset := binary.BigEndian.Uint16(data[6:8])
	ip.Flags = uint8(flagsOffset >> 13)
	ip.FragmentOffset = flagsOffset & 0x1FFF

	// TTL (1 byte at offset 8)
	ip.TTL = data[8]

	// Protocol (1 byte at offset 9)
	ip.Protocol = data[9]

	// Header Checksum (2 bytes at offset 10)
	ip.HeaderChecksum = binary.BigEndian.Uint16(data[10:12])

	// Source and destination addresses (offsets 12 and 16)
	copy(ip.SrcAddr[:], data[12:16])
	copy(ip.DstAddr[:], data[16:20])

	if headerLen > ipv4HeaderMinLen {
		ip.Options = data[ipv4HeaderMinLen:headerLen]
	}

	// Payload starts after IP header; trailing Ethernet padding is dropped
	return ip, data[headerLen:ip.TotalLength], nil
}
