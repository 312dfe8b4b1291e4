// Package core defines core types with zero external dependencies.
package core

import "fmt"

// Protocol numbers carried in the IPv4 protocol field.
const (
	ProtocolNumberTCP uint8 = 6
	ProtocolNumberUDP uint8 = 17
)

// EtherTypeIPv4 is the only EtherType the builders emit.
const EtherTypeIPv4 uint16 = 0x0800

// MAC is a 48-bit hardware address.
type MAC [6]byte

// BroadcastMAC is FF:FF:FF:FF:FF:FF.
var BroadcastMAC = MAC{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// String renders the address as colon separated uppercase hex.
func (m MAC) String() string {
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IPv4Addr is an IPv4 address in network byte order.
type IPv4Addr [4]byte

// String renders the address in dotted decimal form.
func (a IPv4Addr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", a[0], a[1], a[2], a[3])
}

// EthernetHeader represents L2 Ethernet frame header.
type EthernetHeader struct {
	DstMAC    MAC
	SrcMAC    MAC
	EtherType uint16 // 0x0800=IPv4
}

// IPv4Header represents an L3 IPv4 header.
type IPv4Header struct {
	Version        uint8 // always 4
	IHL            uint8 // header length in 32-bit words, 5 without options
	DSCP           uint8
	TotalLength    uint16 // header + L4 bytes
	Identification uint16
	Flags          uint8  // 3 bits
	FragmentOffset uint16 // 13 bits
	TTL            uint8
	Protocol       uint8 // TCP=6, UDP=17
	HeaderChecksum uint16
	SrcAddr        IPv4Addr
	DstAddr        IPv4Addr
	Options        []byte // nil when absent
}

// TCPHeader represents an L4 TCP segment, payload included.
type TCPHeader struct {
	SrcPort        uint16
	DstPort        uint16
	SequenceNumber uint32
	AckNumber      uint32
	DataOffset     uint8  // 4 bits
	Reserved       uint8  // 3 bits
	Flags          uint16 // 9 bits: NS CWR ECE URG ACK PSH RST SYN FIN
	Window         uint16
	Checksum       uint16
	UrgentPointer  uint16
	Options        []byte
	Payload        []byte
}

// UDPHeader represents an L4 UDP datagram, payload included.
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16 // header + payload
	Checksum uint16
	Payload  []byte
}

// TCP flag bits.
const (
	TCPFlagFIN uint16 = 1 << iota
	TCPFlagSYN
	TCPFlagRST
	TCPFlagPSH
	TCPFlagACK
	TCPFlagURG
	TCPFlagECE
	TCPFlagCWR
	TCPFlagNS
)
