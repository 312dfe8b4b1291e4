package packet

import (
	"fmt"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/wire"
)

// EthernetBuilder produces IPv4 Ethernet headers.
type EthernetBuilder struct{}

// Build returns a header carrying EtherType IPv4.
func (EthernetBuilder) Build(src, dst core.MAC) core.EthernetHeader {
	return core.EthernetHeader{
		DstMAC:    dst,
		SrcMAC:    src,
		EtherType: core.EtherTypeIPv4,
	}
}

// IPv4Builder produces IPv4 headers for a fixed address pair.
//
// Bitfield packs the flags into bits 7..5 and the high five bits of the
// fragment offset into bits 4..0; the fragment offset is (Bitfield&0x1F)<<8.
type IPv4Builder struct {
	Src      core.IPv4Addr
	Dst      core.IPv4Addr
	Bitfield uint8
}

// Build returns the IPv4 header for the given transport section with its
// header checksum filled in.
func (b IPv4Builder) Build(l4 core.L4) (core.IPv4Header, error) {
	if l4 == nil {
		return core.IPv4Header{}, fmt.Errorf("%w: nil transport", core.ErrUnsupportedProto)
	}

	total := ipv4HeaderLen + l4Len(l4)
	if total > 0xFFFF {
		return core.IPv4Header{}, &core.ValueTooLargeError{Value: uint64(total), Size: 2}
	}

	h := core.IPv4Header{
		Version:        4,
		IHL:            5,
		DSCP:           0,
		TotalLength:    uint16(total),
		Identification: 0,
		Flags:          (b.Bitfield >> 5) & 0x07,
		FragmentOffset: uint16(b.Bitfield&0x1F) << 8,
		TTL:            defaultTTL,
		Protocol:       l4.Protocol().Number(),
		SrcAddr:        b.Src,
		DstAddr:        b.Dst,
	}
	provisional, err := PackIPv4(h, nil)
	if err != nil {
		return core.IPv4Header{}, err
	}
	// Only the fixed 20-byte header is summed; options are not covered.
	h.HeaderChecksum = wire.InternetChecksum(provisional[:ipv4HeaderLen])
	return h, nil
}

// TCPBuilder produces SYN segments for a fixed address pair.
type TCPBuilder struct {
	Src core.IPv4Addr
	Dst core.IPv4Addr
}

// Build returns a TCP segment with default state fields and a checksum over
// the IPv4 pseudo-header and the whole segment.
func (b TCPBuilder) Build(srcPort, dstPort uint16, payload []byte) (*core.TCPHeader, error) {
	h := &core.TCPHeader{
		SrcPort:        srcPort,
		DstPort:        dstPort,
		SequenceNumber: 0,
		AckNumber:      0,
		DataOffset:     defaultDataOffset,
		Reserved:       0,
		Flags:          core.TCPFlagSYN,
		Window:         defaultTCPWindow,
		UrgentPointer:  0,
		Payload:        payload,
	}

	segment, err := PackTCP(h)
	if err != nil {
		return nil, err
	}
	sum, err := l4Checksum(b.Src, b.Dst, core.ProtocolNumberTCP, segment)
	if err != nil {
		return nil, err
	}
	h.Checksum = sum
	return h, nil
}

// UDPBuilder produces UDP datagrams for a fixed address pair.
type UDPBuilder struct {
	Src core.IPv4Addr
	Dst core.IPv4Addr
}

// Build returns a datagram with its length and checksum filled in. A computed
// checksum of zero is kept as zero.
func (b UDPBuilder) Build(srcPort, dstPort uint16, payload []byte) (*core.UDPHeader, error) {
	length := udpHeaderLen + len(payload)
	if length > 0xFFFF {
		return nil, &core.ValueTooLargeError{Value: uint64(length), Size: 2}
	}
	h := &core.UDPHeader{
		SrcPort: srcPort,
		DstPort: dstPort,
		Length:  uint16(length),
		Payload: payload,
	}

	datagram, err := PackUDP(h)
	if err != nil {
		return nil, err
	}
	sum, err := l4Checksum(b.Src, b.Dst, core.ProtocolNumberUDP, datagram)
	if err != nil {
		return nil, err
	}
	h.Checksum = sum
	return h, nil
}

func l4Checksum(src, dst core.IPv4Addr, protocol uint8, segment []byte) (uint16, error) {
	if len(segment) > 0xFFFF {
		return 0, &core.ValueTooLargeError{Value: uint64(len(segment)), Size: 2}
	}
	pseudo := wire.PseudoHeader(src, dst, protocol, uint16(len(segment)))
	buf := make([]byte, 0, len(pseudo)+len(segment))
	buf = append(buf, pseudo...)
	buf = append(buf, segment...)
	return wire.InternetChecksum(buf), nil
}
