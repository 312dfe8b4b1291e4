package format

import (
	"bytes"
	"encoding/binary"
	"io"
	"time"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/packet"
)

const (
	pcapGlobalHeaderLen = 24
	pcapRecordHeaderLen = 16

	pcapMagic        uint32 = 0xA1B2C3D4
	pcapVersionMajor uint16 = 2
	pcapVersionMinor uint16 = 4
	pcapSnapLen      uint32 = 0xFFFF
	pcapLinkEthernet uint32 = 1
)

// PcapWriter accumulates a little-endian, microsecond resolution capture
// file in memory.
type PcapWriter struct {
	buf bytes.Buffer

	// Now supplies record timestamps. Nil writes zero timestamps.
	Now func() time.Time
}

// NewPcapWriter returns an empty writer. Call WriteGlobalHeader before the
// first record.
func NewPcapWriter() *PcapWriter {
	return &PcapWriter{}
}

// WriteGlobalHeader appends the 24-byte file header.
func (w *PcapWriter) WriteGlobalHeader() {
	var hdr [pcapGlobalHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], pcapMagic)
	binary.LittleEndian.PutUint16(hdr[4:6], pcapVersionMajor)
	binary.LittleEndian.PutUint16(hdr[6:8], pcapVersionMinor)
	// thiszone and sigfigs stay zero
	binary.LittleEndian.PutUint32(hdr[16:20], pcapSnapLen)
	binary.LittleEndian.PutUint32(hdr[20:24], pcapLinkEthernet)
	w.buf.Write(hdr[:])
}

// WritePacket assembles p and appends it as one record.
func (w *PcapWriter) WritePacket(p *core.NetworkPacket) error {
	frame, err := packet.Assemble(p)
	if err != nil {
		return err
	}
	w.WriteFrame(frame)
	return nil
}

// WriteFrame appends an already serialized frame as one record.
func (w *PcapWriter) WriteFrame(frame []byte) {
	var sec, usec uint32
	if w.Now != nil {
		ts := w.Now()
		sec = uint32(ts.Unix())
		usec = uint32(ts.Nanosecond() / 1000)
	}

	var hdr [pcapRecordHeaderLen]byte
	binary.LittleEndian.PutUint32(hdr[0:4], sec)
	binary.LittleEndian.PutUint32(hdr[4:8], usec)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(len(frame)))
	binary.LittleEndian.PutUint32(hdr[12:16], uint32(len(frame)))
	w.buf.Write(hdr[:])
	w.buf.Write(frame)
}

// Bytes returns the capture file written so far.
func (w *PcapWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// WriteTo implements io.WriterTo.
func (w *PcapWriter) WriteTo(out io.Writer) (int64, error) {
	n, err := out.Write(w.buf.Bytes())
	return int64(n), err
}

// PcapReader walks the records of an in-memory capture file.
type PcapReader struct {
	data     []byte
	position int
}

// NewPcapReader wraps data. ReadGlobalHeader must succeed before records
// are read.
func NewPcapReader(data []byte) *PcapReader {
	return &PcapReader{data: data}
}

// ReadGlobalHeader validates the file header and positions the cursor at
// the first record.
func (r *PcapReader) ReadGlobalHeader() error {
	if len(r.data) < pcapGlobalHeaderLen {
		return &core.FormatError{Reason: "PCAP header too short"}
	}
	if binary.LittleEndian.Uint32(r.data[0:4]) != pcapMagic {
		return &core.FormatError{Reason: "Invalid PCAP magic number"}
	}
	r.position = pcapGlobalHeaderLen
	return nil
}

// ReadNextPacket returns the next record's frame bytes. The returned slice
// aliases the reader's buffer.
func (r *PcapReader) ReadNextPacket() ([]byte, error) {
	frame, _, err := r.ReadNextRecord()
	return frame, err
}

// ReadNextRecord is ReadNextPacket plus the record timestamp.
func (r *PcapReader) ReadNextRecord() ([]byte, time.Time, error) {
	if r.position+pcapRecordHeaderLen > len(r.data) {
		return nil, time.Time{}, io.EOF
	}
	hdr := r.data[r.position : r.position+pcapRecordHeaderLen]
	sec := binary.LittleEndian.Uint32(hdr[0:4])
	usec := binary.LittleEndian.Uint32(hdr[4:8])
	caplen := int(binary.LittleEndian.Uint32(hdr[8:12]))
	r.position += pcapRecordHeaderLen

	if caplen > len(r.data)-r.position {
		return nil, time.Time{}, &core.FormatError{Reason: "PCAP packet data truncated"}
	}
	frame := r.data[r.position : r.position+caplen]
	r.position += caplen

	var ts time.Time
	if sec != 0 || usec != 0 {
		ts = time.Unix(int64(sec), int64(usec)*1000).UTC()
	}
	return frame, ts, nil
}

// HasMorePackets reports whether the cursor is before the end of the buffer.
func (r *PcapReader) HasMorePackets() bool {
	return r.position < len(r.data)
}
