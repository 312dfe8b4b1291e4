package packet

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktforge/internal/core"
)

// gopacket serves as an independent encoder and decoder for our frames.

func serializeWithGopacket(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func TestInteropTCPMatchesGopacket(t *testing.T) {
	payload := []byte("interop payload over tcp")
	pkt, err := Params{
		SrcIP:      testSrcIP,
		DstIP:      testDstIP,
		SrcPort:    12345,
		DstPort:    8080,
		IPBitfield: 0x40,
		Payload:    payload,
	}.Build()
	require.NoError(t, err)
	frame, err := Assemble(pkt)
	require.NoError(t, err)

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Flags:    layers.IPv4DontFragment,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.IP(testSrcIP[:]),
		DstIP:    net.IP(testDstIP[:]),
	}
	tcp := &layers.TCP{
		SrcPort: 12345,
		DstPort: 8080,
		SYN:     true,
		Window:  65535,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))

	want := serializeWithGopacket(t, ip, tcp, gopacket.Payload(payload))
	assert.Equal(t, want, frame[14:])
}

func TestInteropUDPMatchesGopacket(t *testing.T) {
	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF, 0x01}
	pkt, err := Params{
		SrcIP:    testSrcIP,
		DstIP:    testDstIP,
		SrcPort:  5353,
		DstPort:  5353,
		Protocol: core.ProtocolUDP,
		Payload:  payload,
	}.Build()
	require.NoError(t, err)
	frame, err := Assemble(pkt)
	require.NoError(t, err)

	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IP(testSrcIP[:]),
		DstIP:    net.IP(testDstIP[:]),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 5353}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	want := serializeWithGopacket(t, ip, udp, gopacket.Payload(payload))
	assert.Equal(t, want, frame[14:])
}

func TestInteropGopacketDecodesFrame(t *testing.T) {
	srcMAC := core.MAC{0x02, 0x42, 0xAC, 0x11, 0x00, 0x02}
	pkt, err := Params{
		SrcIP:   testSrcIP,
		DstIP:   testDstIP,
		SrcMAC:  srcMAC,
		DstMAC:  core.BroadcastMAC,
		SrcPort: 40000,
		DstPort: 22,
		Payload: []byte("SSH-2.0"),
	}.Build()
	require.NoError(t, err)
	frame, err := Assemble(pkt)
	require.NoError(t, err)

	decoded := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	require.Nil(t, decoded.ErrorLayer())

	eth := decoded.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	assert.Equal(t, net.HardwareAddr(srcMAC[:]), eth.SrcMAC)
	assert.Equal(t, layers.EthernetTypeIPv4, eth.EthernetType)

	ip := decoded.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	assert.Equal(t, uint16(20+20+7), ip.Length)
	assert.Equal(t, pkt.IPv4.HeaderChecksum, ip.Checksum)
	assert.True(t, ip.SrcIP.Equal(net.IP(testSrcIP[:])))

	tcp := decoded.Layer(layers.LayerTypeTCP).(*layers.TCP)
	assert.Equal(t, layers.TCPPort(40000), tcp.SrcPort)
	assert.Equal(t, layers.TCPPort(22), tcp.DstPort)
	assert.True(t, tcp.SYN)
	assert.False(t, tcp.ACK)
	assert.Equal(t, uint8(5), tcp.DataOffset)
	assert.Equal(t, []byte("SSH-2.0"), tcp.Payload)
}
