// Package format implements the capture-file and structured-text
// representations of built packets.
package format

import (
	"fmt"
	"strings"

	"firestige.xyz/pktforge/internal/core"
)

// Type selects an output representation.
type Type int

const (
	TypePcap Type = iota
	TypeJSON
	TypeYAML
)

// String returns the lower-case name accepted by ParseType.
func (t Type) String() string {
	switch t {
	case TypePcap:
		return "pcap"
	case TypeJSON:
		return "json"
	case TypeYAML:
		return "yaml"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType maps a format name to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "pcap":
		return TypePcap, nil
	case "json":
		return TypeJSON, nil
	case "yaml", "yml":
		return TypeYAML, nil
	default:
		return 0, fmt.Errorf("%w: %q (must be pcap/json/yaml)", core.ErrUnsupportedFormat, name)
	}
}

// Writer appends packets to an in-memory buffer.
type Writer interface {
	WritePacket(p *core.NetworkPacket) error
	// Bytes returns the accumulated output. The slice aliases the writer's
	// buffer until the next WritePacket.
	Bytes() []byte
}

// Reader iterates over the raw frames of a capture buffer.
type Reader interface {
	// ReadNextPacket returns the next frame, or io.EOF once fewer than a
	// record header's worth of bytes remain.
	ReadNextPacket() ([]byte, error)
	HasMorePackets() bool
}

// Factory creates writers and readers by Type.
type Factory struct {
	// IncludeRawData controls metadata.raw_data in text output.
	IncludeRawData bool
	// Indent, when non-empty, pretty-prints JSON output.
	Indent string
}

// NewFactory returns a Factory whose text writers include raw data.
func NewFactory() *Factory {
	return &Factory{IncludeRawData: true}
}

// NewWriter returns a writer for t. Pcap writers start with the global
// header already written so the buffer is a valid capture file at any point.
func (f *Factory) NewWriter(t Type) (Writer, error) {
	switch t {
	case TypePcap:
		w := NewPcapWriter()
		w.WriteGlobalHeader()
		return w, nil
	case TypeJSON, TypeYAML:
		return f.textWriter(t), nil
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedFormat, t)
	}
}

// NewReader returns a reader over data. Only capture files can be read
// back as frames; text output has no frame reader.
func (f *Factory) NewReader(t Type, data []byte) (Reader, error) {
	switch t {
	case TypePcap:
		r := NewPcapReader(data)
		if err := r.ReadGlobalHeader(); err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("%w: no frame reader for %v", core.ErrUnsupportedFormat, t)
	}
}

// WritePacket encodes a single packet as a complete document of type t: a
// capture file holding one record, or a single text object.
func (f *Factory) WritePacket(p *core.NetworkPacket, t Type) ([]byte, error) {
	switch t {
	case TypeJSON, TypeYAML:
		return f.textWriter(t).Encode(p)
	default:
		return f.WritePackets([]*core.NetworkPacket{p}, t)
	}
}

// WritePackets encodes packets as one document: a capture file with one
// global header, or a text array.
func (f *Factory) WritePackets(packets []*core.NetworkPacket, t Type) ([]byte, error) {
	switch t {
	case TypePcap:
		w := NewPcapWriter()
		w.WriteGlobalHeader()
		for _, p := range packets {
			if err := w.WritePacket(p); err != nil {
				return nil, err
			}
		}
		return w.Bytes(), nil
	case TypeJSON, TypeYAML:
		return f.textWriter(t).EncodeBatch(packets)
	default:
		return nil, fmt.Errorf("%w: %v", core.ErrUnsupportedFormat, t)
	}
}

func (f *Factory) textWriter(t Type) *TextWriter {
	enc := EncodingJSON
	if t == TypeYAML {
		enc = EncodingYAML
	}
	return &TextWriter{IncludeRawData: f.IncludeRawData, Encoding: enc, Indent: f.Indent}
}
