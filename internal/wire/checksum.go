// Package wire implements the byte-level primitives shared by the packet
// builders: the internet checksum and fixed-width big-endian encoding.
package wire

import (
	"encoding/binary"

	"firestige.xyz/pktforge/internal/core"
)

const pseudoHeaderLen = 12

// InternetChecksum computes the RFC 1071 one's complement checksum of data.
// An odd trailing byte is treated as the high byte of a final 16-bit word.
func InternetChecksum(data []byte) uint16 {
	var sum uint32
	n := len(data)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(data[i])<<8 | uint32(data[i+1])
	}
	if n%2 == 1 {
		sum += uint32(data[n-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	return ^uint16(sum)
}

// PseudoHeader returns the 12-byte IPv4 pseudo-header used by the TCP and
// UDP checksums: src, dst, zero, protocol, L4 length.
func PseudoHeader(src, dst core.IPv4Addr, protocol uint8, length uint16) []byte {
	buf := make([]byte, pseudoHeaderLen)
	copy(buf[0:4], src[:])
	copy(buf[4:8], dst[:])
	buf[8] = 0
	buf[9] = protocol
	binary.BigEndian.PutUint16(buf[10:12], length)
	return buf
}
