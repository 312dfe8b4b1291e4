package format

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/packet"
)

func buildPacket(t *testing.T, proto core.L4Protocol, srcPort uint16, payload string) *core.NetworkPacket {
	t.Helper()
	pkt, err := packet.Params{
		SrcIP:    core.IPv4Addr{192, 168, 1, 100},
		DstIP:    core.IPv4Addr{192, 168, 1, 200},
		SrcMAC:   core.MAC{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF},
		DstMAC:   core.MAC{0x11, 0x22, 0x33, 0x44, 0x55, 0x66},
		SrcPort:  srcPort,
		DstPort:  443,
		Protocol: proto,
		Payload:  []byte(payload),
	}.Build()
	require.NoError(t, err)
	return pkt
}

func TestPcapGlobalHeader(t *testing.T) {
	w := NewPcapWriter()
	w.WriteGlobalHeader()

	assert.Equal(t, []byte{
		0xD4, 0xC3, 0xB2, 0xA1, // magic
		0x02, 0x00, 0x04, 0x00, // version 2.4
		0x00, 0x00, 0x00, 0x00, // thiszone
		0x00, 0x00, 0x00, 0x00, // sigfigs
		0xFF, 0xFF, 0x00, 0x00, // snaplen
		0x01, 0x00, 0x00, 0x00, // Ethernet
	}, w.Bytes())
}

func TestPcapRecordHeader(t *testing.T) {
	pkt := buildPacket(t, core.ProtocolTCP, 8080, "Hello, World!")
	frame, err := packet.Assemble(pkt)
	require.NoError(t, err)

	w := NewPcapWriter()
	require.NoError(t, w.WritePacket(pkt))
	out := w.Bytes()

	require.Len(t, out, 16+len(frame))
	assert.Equal(t, make([]byte, 8), out[0:8], "timestamps must be zero")
	assert.Equal(t, []byte{byte(len(frame)), 0, 0, 0}, out[8:12])
	assert.Equal(t, []byte{byte(len(frame)), 0, 0, 0}, out[12:16])
	assert.Equal(t, frame, out[16:])
}

func TestPcapRoundTrip(t *testing.T) {
	pkts := []*core.NetworkPacket{
		buildPacket(t, core.ProtocolTCP, 1000, "first"),
		buildPacket(t, core.ProtocolUDP, 1001, "second"),
		buildPacket(t, core.ProtocolTCP, 1002, ""),
	}

	data, err := NewFactory().WritePackets(pkts, TypePcap)
	require.NoError(t, err)

	r, err := NewFactory().NewReader(TypePcap, data)
	require.NoError(t, err)

	for i, pkt := range pkts {
		require.True(t, r.HasMorePackets(), "record %d", i)
		want, err := packet.Assemble(pkt)
		require.NoError(t, err)

		got, err := r.ReadNextPacket()
		require.NoError(t, err)
		assert.Equal(t, want, got, "record %d", i)
	}
	assert.False(t, r.HasMorePackets())

	_, err = r.ReadNextPacket()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPcapReaderErrors(t *testing.T) {
	t.Run("short header", func(t *testing.T) {
		err := NewPcapReader(make([]byte, 23)).ReadGlobalHeader()
		var fe *core.FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "PCAP header too short", fe.Reason)
	})

	t.Run("bad magic", func(t *testing.T) {
		data := make([]byte, 24)
		copy(data, []byte{0xA1, 0xB2, 0xC3, 0xD4}) // big-endian file
		_, err := NewFactory().NewReader(TypePcap, data)
		var fe *core.FormatError
		require.True(t, errors.As(err, &fe))
		assert.Equal(t, "Invalid PCAP magic number", fe.Reason)
	})

	t.Run("truncated record", func(t *testing.T) {
		w := NewPcapWriter()
		w.WriteGlobalHeader()
		w.WriteFrame([]byte{1, 2, 3, 4, 5, 6, 7, 8})
		data := w.Bytes()[:len(w.Bytes())-1]

		r, err := NewFactory().NewReader(TypePcap, data)
		require.NoError(t, err)
		_, err = r.ReadNextPacket()
		assert.ErrorIs(t, err, core.ErrInvalidFormat)
	})

	t.Run("dangling bytes", func(t *testing.T) {
		w := NewPcapWriter()
		w.WriteGlobalHeader()
		data := append(w.Bytes(), 0x00, 0x01, 0x02)

		r, err := NewFactory().NewReader(TypePcap, data)
		require.NoError(t, err)
		assert.True(t, r.HasMorePackets())
		_, err = r.ReadNextPacket()
		assert.ErrorIs(t, err, io.EOF)
	})

	t.Run("header only", func(t *testing.T) {
		w := NewPcapWriter()
		w.WriteGlobalHeader()
		r, err := NewFactory().NewReader(TypePcap, w.Bytes())
		require.NoError(t, err)
		assert.False(t, r.HasMorePackets())
	})
}

func TestPcapTimestamps(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 250000000, time.UTC)
	w := &PcapWriter{Now: func() time.Time { return ts }}
	w.WriteGlobalHeader()
	w.WriteFrame([]byte{0xAB})

	r := NewPcapReader(w.Bytes())
	require.NoError(t, r.ReadGlobalHeader())
	frame, got, err := r.ReadNextRecord()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAB}, frame)
	assert.True(t, ts.Equal(got), "expected %v, got %v", ts, got)
}

func TestPcapReadableByPcapgo(t *testing.T) {
	pkts := []*core.NetworkPacket{
		buildPacket(t, core.ProtocolTCP, 2000, "abc"),
		buildPacket(t, core.ProtocolUDP, 2001, "defgh"),
	}
	data, err := NewFactory().WritePackets(pkts, TypePcap)
	require.NoError(t, err)

	r, err := pcapgo.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, layers.LinkTypeEthernet, r.LinkType())
	assert.Equal(t, uint32(0xFFFF), r.Snaplen())

	for i, pkt := range pkts {
		want, err := packet.Assemble(pkt)
		require.NoError(t, err)

		got, ci, err := r.ReadPacketData()
		require.NoError(t, err, "record %d", i)
		assert.Equal(t, want, got)
		assert.Equal(t, len(want), ci.CaptureLength)
		assert.Equal(t, len(want), ci.Length)
	}

	_, _, err = r.ReadPacketData()
	assert.ErrorIs(t, err, io.EOF)
}

func TestPcapWriteTo(t *testing.T) {
	w := NewPcapWriter()
	w.WriteGlobalHeader()

	var out bytes.Buffer
	n, err := w.WriteTo(&out)
	require.NoError(t, err)
	assert.Equal(t, int64(24), n)
	assert.Equal(t, w.Bytes(), out.Bytes())
}
