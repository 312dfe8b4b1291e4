// Package decoder implements protocol decoding.
package decoder

import (
	"encoding/binary"

	"firestige.xyz/pktforge/internal/core"
)

const (
	// Ethernet constants
	ethernetHeaderLen = 14

	// EtherType values
	etherTypeIPv4 = 0x0800
)

// decodeEthernet decodes an untagged Ethernet header.
// Returns EthernetHeader and remaining payload.
func decodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < ethernetHeaderLen {
		return core.EthernetHeader{}, nil, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}

	// Destination MAC (6 bytes)
	copy(eth.DstMAC[:], data[0:6])

	// Source MAC (6 bytes)
	copy(eth.SrcMAC[:], data[6:12])

	// EtherType (2 bytes)
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])

	return eth, data[ethernetHeaderLen:], nil
}
