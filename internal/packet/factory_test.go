package packet

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktforge/internal/core"
)

func u16(v uint16) *uint16 { return &v }
func u8(v uint8) *uint8    { return &v }

func TestFromConstructionParamsDefaults(t *testing.T) {
	p, err := FromConstructionParams(ConstructionParams{
		SrcIP: "10.0.0.1",
		DstIP: "10.0.0.2",
	})
	require.NoError(t, err)

	want := Params{
		SrcIP:    core.IPv4Addr{10, 0, 0, 1},
		DstIP:    core.IPv4Addr{10, 0, 0, 2},
		SrcMAC:   core.MAC{},
		DstMAC:   core.BroadcastMAC,
		SrcPort:  12345,
		DstPort:  80,
		Protocol: core.ProtocolTCP,
	}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("FromConstructionParams mismatch (-want +got):\n%s", diff)
	}
}

func TestFromConstructionParamsOverrides(t *testing.T) {
	src := core.MAC{0x02, 0, 0, 0, 0, 0x01}
	dst := core.MAC{0x02, 0, 0, 0, 0, 0x02}
	p, err := FromConstructionParams(ConstructionParams{
		SrcIP:      "10.0.0.1",
		DstIP:      "10.0.0.2",
		SrcMAC:     &src,
		DstMAC:     &dst,
		SrcPort:    u16(1000),
		DstPort:    u16(53),
		Protocol:   "udp",
		IPBitfield: u8(0x40),
		Payload:    []byte("q"),
	})
	require.NoError(t, err)

	assert.Equal(t, src, p.SrcMAC)
	assert.Equal(t, dst, p.DstMAC)
	assert.Equal(t, uint16(1000), p.SrcPort)
	assert.Equal(t, uint16(53), p.DstPort)
	assert.Equal(t, core.ProtocolUDP, p.Protocol)
	assert.Equal(t, uint8(0x40), p.IPBitfield)
	assert.Equal(t, []byte("q"), p.Payload)
}

func TestFromConstructionParamsUnknownProtocol(t *testing.T) {
	p, err := FromConstructionParams(ConstructionParams{SrcIP: "1.1.1.1", DstIP: "2.2.2.2", Protocol: "icmp"})
	require.NoError(t, err)
	assert.Equal(t, core.ProtocolTCP, p.Protocol)
}

func TestFromConstructionParamsErrors(t *testing.T) {
	t.Run("missing src", func(t *testing.T) {
		_, err := FromConstructionParams(ConstructionParams{DstIP: "1.1.1.1"})
		var missing *core.MissingRequiredFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "src_ip", missing.Name)
	})

	t.Run("missing dst", func(t *testing.T) {
		_, err := FromConstructionParams(ConstructionParams{SrcIP: "1.1.1.1"})
		var missing *core.MissingRequiredFieldError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "dst_ip", missing.Name)
	})

	t.Run("malformed address", func(t *testing.T) {
		_, err := FromConstructionParams(ConstructionParams{SrcIP: "1.1.1", DstIP: "2.2.2.2"})
		assert.ErrorIs(t, err, core.ErrNotEnoughOctets)

		_, err = FromConstructionParams(ConstructionParams{SrcIP: "1.1.1.1", DstIP: "2.2.2.2.2"})
		assert.ErrorIs(t, err, core.ErrTooManyOctets)
	})
}

func TestFactoryBuild(t *testing.T) {
	f := NewFactory(testSrcIP, testDstIP, 0)

	pkt, err := f.Build(testSrcMAC, core.BroadcastMAC, 1, 2, core.ProtocolUDP, []byte("x"))
	require.NoError(t, err)

	udp, ok := pkt.L4.(*core.UDPHeader)
	require.True(t, ok, "expected UDP, got %T", pkt.L4)
	assert.Equal(t, uint16(9), udp.Length)
	assert.Equal(t, uint16(29), pkt.IPv4.TotalLength)
	assert.Equal(t, testSrcMAC, pkt.Ethernet.SrcMAC)
	assert.Equal(t, core.BroadcastMAC, pkt.Ethernet.DstMAC)
	assert.Equal(t, testSrcIP, pkt.IPv4.SrcAddr)
	assert.Equal(t, testDstIP, pkt.IPv4.DstAddr)
}

func TestBuildIsDeterministic(t *testing.T) {
	params := Params{SrcIP: testSrcIP, DstIP: testDstIP, SrcPort: 7, DstPort: 9, Payload: []byte("abc")}

	a, err := params.Build()
	require.NoError(t, err)
	b, err := params.Build()
	require.NoError(t, err)

	fa, err := Assemble(a)
	require.NoError(t, err)
	fb, err := Assemble(b)
	require.NoError(t, err)
	assert.Equal(t, fa, fb)
}

func TestBuildMany(t *testing.T) {
	params := make([]Params, 32)
	for i := range params {
		params[i] = Params{
			SrcIP:   testSrcIP,
			DstIP:   testDstIP,
			SrcPort: uint16(10000 + i),
			DstPort: 80,
		}
	}

	pkts, err := BuildMany(context.Background(), params, 4)
	require.NoError(t, err)
	require.Len(t, pkts, len(params))
	for i, pkt := range pkts {
		tcp := pkt.L4.(*core.TCPHeader)
		assert.Equal(t, uint16(10000+i), tcp.SrcPort)
	}
}

func TestBuildManyError(t *testing.T) {
	params := []Params{
		{SrcIP: testSrcIP, DstIP: testDstIP},
		{SrcIP: testSrcIP, DstIP: testDstIP, Protocol: core.ProtocolUDP, Payload: make([]byte, 0x10000)},
	}

	_, err := BuildMany(context.Background(), params, 0)
	assert.ErrorIs(t, err, core.ErrValueTooLarge)
}

func TestBuildManyCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := BuildMany(ctx, []Params{{SrcIP: testSrcIP, DstIP: testDstIP}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFactoryTCPAndUDPScenarios(t *testing.T) {
	srcMAC := core.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	dstMAC := core.MAC{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	f := NewFactory(core.IPv4Addr{192, 168, 1, 100}, core.IPv4Addr{192, 168, 1, 200}, 0x04)

	tcp, err := f.Build(srcMAC, dstMAC, 8080, 443, core.ProtocolTCP, []byte("Hello, World!"))
	require.NoError(t, err)
	assert.Equal(t, uint16(20+20+13), tcp.IPv4.TotalLength)
	assert.Equal(t, uint16(0x0400), tcp.IPv4.FragmentOffset)
	assert.NotZero(t, tcp.IPv4.HeaderChecksum)
	assert.NotZero(t, tcp.L4.(*core.TCPHeader).Checksum)
	assert.Equal(t, 67, Size(tcp))

	frame, err := Assemble(tcp)
	require.NoError(t, err)
	assert.Len(t, frame, 67)
	assert.Equal(t, dstMAC[:], frame[0:6])
	assert.Equal(t, srcMAC[:], frame[6:12])

	udp, err := f.Build(srcMAC, dstMAC, 12345, 53, core.ProtocolUDP, []byte("DNS Query"))
	require.NoError(t, err)
	h := udp.L4.(*core.UDPHeader)
	assert.Equal(t, uint16(17), h.Length)
	assert.Equal(t, uint16(37), udp.IPv4.TotalLength)
	assert.Equal(t, 51, Size(udp))
}

func TestFactoryBitfieldsKeepChecksumsValid(t *testing.T) {
	for _, b := range []uint8{0x00, 0x04, 0x08, 0x0C} {
		f := NewFactory(core.IPv4Addr{10, 0, 0, 1}, core.IPv4Addr{10, 0, 0, 2}, b)
		p, err := f.Build(core.MAC{}, core.BroadcastMAC, DefaultSrcPort, DefaultDstPort, core.ProtocolTCP, nil)
		require.NoError(t, err)

		assert.Equal(t, uint8(0), p.IPv4.Flags, "bitfield 0x%02X", b)
		assert.Equal(t, uint16(b&0x1F)<<8, p.IPv4.FragmentOffset, "bitfield 0x%02X", b)

		frame, err := Assemble(p)
		require.NoError(t, err)
		assert.Len(t, frame, 54)
	}
}
