// Package decoder implements L2-L4 protocol stack decoding.
package decoder

import (
	"errors"
	"fmt"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/wire"
)

// Decoder decodes raw frames into structured packets.
type Decoder interface {
	Decode(frame []byte) (*core.NetworkPacket, error)
}

// Config controls StandardDecoder behaviour.
type Config struct {
	// VerifyChecksums rejects frames whose IPv4 or L4 checksum is wrong.
	VerifyChecksums bool
}

// StandardDecoder decodes untagged Ethernet/IPv4/TCP|UDP frames.
type StandardDecoder struct {
	config Config
}

// NewStandardDecoder creates a decoder with the given config.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	return &StandardDecoder{config: cfg}
}

// Decode parses frame. Header and payload slices in the result alias frame.
func (d *StandardDecoder) Decode(frame []byte) (*core.NetworkPacket, error) {
	eth, l3, err := decodeEthernet(frame)
	if err != nil {
		return nil, err
	}
	if eth.EtherType != etherTypeIPv4 {
		return nil, fmt.Errorf("%w: ethertype 0x%04x", core.ErrUnsupportedProto, eth.EtherType)
	}

	ip, l4data, err := decodeIPv4(l3)
	if err != nil {
		return nil, err
	}

	l4, err := decodeTransport(l4data, ip.Protocol)
	if err != nil {
		if errors.Is(err, core.ErrUnsupportedProto) {
			return nil, fmt.Errorf("%w: ip protocol %d", err, ip.Protocol)
		}
		return nil, err
	}

	pkt := &core.NetworkPacket{Ethernet: eth, IPv4: ip, L4: l4}
	if d.config.VerifyChecksums {
		report := VerifyChecksums(pkt, l3[:int(ip.IHL)*4], l4data)
		if !report.Valid() {
			return nil, fmt.Errorf("%w: %s", core.ErrBadChecksum, report)
		}
	}
	return pkt, nil
}

// ChecksumReport holds the outcome of checksum verification.
type ChecksumReport struct {
	IPv4Valid bool
	L4Valid   bool
}

// Valid reports whether both checksums verified.
func (r ChecksumReport) Valid() bool {
	return r.IPv4Valid && r.L4Valid
}

func (r ChecksumReport) String() string {
	return fmt.Sprintf("ipv4=%s l4=%s", okString(r.IPv4Valid), okString(r.L4Valid))
}

func okString(ok bool) string {
	if ok {
		return "ok"
	}
	return "bad"
}

// VerifyChecksums checks the IPv4 header checksum over ipHeader and the
// TCP/UDP checksum over the pseudo-header plus segment. A zero UDP
// checksum means "not computed" and is accepted.
func VerifyChecksums(pkt *core.NetworkPacket, ipHeader, segment []byte) ChecksumReport {
	report := ChecksumReport{
		IPv4Valid: wire.InternetChecksum(ipHeader) == 0,
	}

	switch h := pkt.L4.(type) {
	case *core.TCPHeader:
	case *core.UDPHeader:
		if h.Checksum == 0 {
			report.L4Valid = true
			return report
		}
	default:
		return report
	}

	pseudo := wire.PseudoHeader(pkt.IPv4.SrcAddr, pkt.IPv4.DstAddr, pkt.IPv4.Protocol, uint16(len(segment)))
	report.L4Valid = wire.InternetChecksum(append(pseudo, segment...)) == 0
	return report
}

// Verify decodes frame and reports checksum validity without rejecting it.
func Verify(frame []byte) (*core.NetworkPacket, ChecksumReport, error) {
	pkt, err := NewStandardDecoder(Config{}).Decode(frame)
	if err != nil {
		return nil, ChecksumReport{}, err
	}
	ipLen := int(pkt.IPv4.IHL) * 4
	l3 := frame[ethernetHeaderLen:]
	return pkt, VerifyChecksums(pkt, l3[:ipLen], l3[ipLen:pkt.IPv4.TotalLength]), nil
}
