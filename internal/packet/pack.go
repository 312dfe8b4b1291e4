// Package packet builds Ethernet/IPv4/TCP|UDP frames: per-layer header
// builders with checksum computation, wire packers and the assembler that
// nests them into a single frame.
package packet

import (
	"fmt"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/wire"
)

const (
	ethernetHeaderLen = 14
	ipv4HeaderLen     = 20
	tcpHeaderLen      = 20
	udpHeaderLen      = 8

	defaultTTL        = 64
	defaultTCPWindow  = 65535
	defaultDataOffset = 5
)

// PackEthernet serializes h followed by payload.
func PackEthernet(h core.EthernetHeader, payload []byte) ([]byte, error) {
	enc := wire.NewEncoder(ethernetHeaderLen + len(payload))
	enc.Raw(h.DstMAC[:])
	enc.Raw(h.SrcMAC[:])
	enc.Uint(uint64(h.EtherType), 2)
	enc.Raw(payload)
	return enc.Bytes()
}

// PackIPv4 serializes h, its options, then payload. The header fields are
// written as stored; no length or checksum is recomputed.
func PackIPv4(h core.IPv4Header, payload []byte) ([]byte, error) {
	enc := wire.NewEncoder(ipv4HeaderLen + len(h.Options) + len(payload))
	enc.Uint(uint64(h.Version)<<4|uint64(h.IHL&0x0F), 1)
	enc.Uint(uint64(h.DSCP), 1)
	enc.Uint(uint64(h.TotalLength), 2)
	enc.Uint(uint64(h.Identification), 2)
	enc.Uint(uint64(h.Flags&0x07)<<13|uint64(h.FragmentOffset&0x1FFF), 2)
	enc.Uint(uint64(h.TTL), 1)
	enc.Uint(uint64(h.Protocol), 1)
	enc.Uint(uint64(h.HeaderChecksum), 2)
	enc.Raw(h.SrcAddr[:])
	enc.Raw(h.DstAddr[:])
	enc.Raw(h.Options)
	enc.Raw(payload)
	return enc.Bytes()
}

// PackTCP serializes a TCP segment including its payload. Options are zero
// padded to a 32-bit boundary and the on-wire data offset is derived from the
// padded header length.
func PackTCP(h *core.TCPHeader) ([]byte, error) {
	optLen := paddedLen(len(h.Options))
	hdrLen := tcpHeaderLen + optLen

	enc := wire.NewEncoder(hdrLen + len(h.Payload))
	enc.Uint(uint64(h.SrcPort), 2)
	enc.Uint(uint64(h.DstPort), 2)
	enc.Uint(uint64(h.SequenceNumber), 4)
	enc.Uint(uint64(h.AckNumber), 4)
	enc.Uint(uint64(hdrLen/4)<<12|uint64(h.Reserved&0x07)<<9|uint64(h.Flags&0x1FF), 2)
	enc.Uint(uint64(h.Window), 2)
	enc.Uint(uint64(h.Checksum), 2)
	enc.Uint(uint64(h.UrgentPointer), 2)
	enc.Raw(h.Options)
	enc.Raw(make([]byte, optLen-len(h.Options)))
	enc.Raw(h.Payload)
	return enc.Bytes()
}

// PackUDP serializes a UDP datagram including its payload.
func PackUDP(h *core.UDPHeader) ([]byte, error) {
	enc := wire.NewEncoder(udpHeaderLen + len(h.Payload))
	enc.Uint(uint64(h.SrcPort), 2)
	enc.Uint(uint64(h.DstPort), 2)
	enc.Uint(uint64(h.Length), 2)
	enc.Uint(uint64(h.Checksum), 2)
	enc.Raw(h.Payload)
	return enc.Bytes()
}

// PackL4 dispatches on the transport variant.
func PackL4(l4 core.L4) ([]byte, error) {
	switch h := l4.(type) {
	case *core.TCPHeader:
		return PackTCP(h)
	case *core.UDPHeader:
		return PackUDP(h)
	default:
		return nil, fmt.Errorf("%w: %T", core.ErrUnsupportedProto, l4)
	}
}

// l4Len is the serialized length of the transport section.
func l4Len(l4 core.L4) int {
	switch h := l4.(type) {
	case *core.TCPHeader:
		return tcpHeaderLen + paddedLen(len(h.Options)) + len(h.Payload)
	case *core.UDPHeader:
		return udpHeaderLen + len(h.Payload)
	default:
		return 0
	}
}

func paddedLen(n int) int {
	return (n + 3) &^ 3
}
