package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/packet"
	"firestige.xyz/pktforge/internal/parse"
)

// Encoding selects the structured text syntax.
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingYAML
)

// TextPacket is the field-level view of a packet written by TextWriter.
type TextPacket struct {
	Ethernet TextEthernet `json:"ethernet" yaml:"ethernet"`
	IPv4     TextIPv4     `json:"ipv4" yaml:"ipv4"`
	L4       TextL4       `json:"l4" yaml:"l4"`
	Metadata TextMetadata `json:"metadata" yaml:"metadata"`
}

type TextEthernet struct {
	SrcMAC    string `json:"src_mac" yaml:"src_mac"`
	DstMAC    string `json:"dst_mac" yaml:"dst_mac"`
	EtherType uint16 `json:"ethertype" yaml:"ethertype"`
}

type TextIPv4 struct {
	SrcAddr        string `json:"src_addr" yaml:"src_addr"`
	DstAddr        string `json:"dst_addr" yaml:"dst_addr"`
	Protocol       uint8  `json:"protocol" yaml:"protocol"`
	TotalLength    uint16 `json:"total_length" yaml:"total_length"`
	HeaderChecksum uint16 `json:"header_checksum" yaml:"header_checksum"`
	TTL            uint8  `json:"ttl" yaml:"ttl"`
	Flags          uint8  `json:"flags" yaml:"flags"`
	FragmentOffset uint16 `json:"fragment_offset" yaml:"fragment_offset"`
}

// TextL4 carries the fields common to TCP and UDP; variant specific values
// go to AdditionalFields.
type TextL4 struct {
	ProtocolType     string            `json:"protocol_type" yaml:"protocol_type"`
	SrcPort          uint16            `json:"src_port" yaml:"src_port"`
	DstPort          uint16            `json:"dst_port" yaml:"dst_port"`
	PayloadSize      int               `json:"payload_size" yaml:"payload_size"`
	Checksum         uint16            `json:"checksum" yaml:"checksum"`
	AdditionalFields map[string]uint64 `json:"additional_fields" yaml:"additional_fields"`
}

type TextMetadata struct {
	PacketSize int    `json:"packet_size" yaml:"packet_size"`
	Timestamp  uint64 `json:"timestamp" yaml:"timestamp"` // unix milliseconds, 0 without a clock
	RawData    string `json:"raw_data" yaml:"raw_data"`
}

// TextWriter renders packets as JSON or YAML documents.
type TextWriter struct {
	// IncludeRawData adds the assembled frame as a hex dump.
	IncludeRawData bool
	Encoding       Encoding
	// Indent pretty-prints JSON when non-empty. YAML is always block style.
	Indent string
	// Now supplies metadata.timestamp. Nil writes 0.
	Now func() time.Time

	buf  bytes.Buffer
	docs int
}

// NewTextWriter returns a JSON writer that includes raw data.
func NewTextWriter() *TextWriter {
	return &TextWriter{IncludeRawData: true}
}

// NewTextWriterWithoutRawData returns a JSON writer with raw_data empty.
func NewTextWriterWithoutRawData() *TextWriter {
	return &TextWriter{}
}

// Convert builds the text view of p.
func (w *TextWriter) Convert(p *core.NetworkPacket) (TextPacket, error) {
	tp := TextPacket{
		Ethernet: TextEthernet{
			SrcMAC:    p.Ethernet.SrcMAC.String(),
			DstMAC:    p.Ethernet.DstMAC.String(),
			EtherType: p.Ethernet.EtherType,
		},
		IPv4: TextIPv4{
			SrcAddr:        p.IPv4.SrcAddr.String(),
			DstAddr:        p.IPv4.DstAddr.String(),
			Protocol:       p.IPv4.Protocol,
			TotalLength:    p.IPv4.TotalLength,
			HeaderChecksum: p.IPv4.HeaderChecksum,
			TTL:            p.IPv4.TTL,
			Flags:          p.IPv4.Flags,
			FragmentOffset: p.IPv4.FragmentOffset,
		},
	}

	switch h := p.L4.(type) {
	case *core.TCPHeader:
		tp.L4 = TextL4{
			ProtocolType: core.ProtocolTCP.String(),
			SrcPort:      h.SrcPort,
			DstPort:      h.DstPort,
			PayloadSize:  len(h.Payload),
			Checksum:     h.Checksum,
			AdditionalFields: map[string]uint64{
				"sequence_number": uint64(h.SequenceNumber),
				"ack_number":      uint64(h.AckNumber),
				"flags":           uint64(h.Flags),
				"window":          uint64(h.Window),
			},
		}
	case *core.UDPHeader:
		tp.L4 = TextL4{
			ProtocolType: core.ProtocolUDP.String(),
			SrcPort:      h.SrcPort,
			DstPort:      h.DstPort,
			PayloadSize:  len(h.Payload),
			Checksum:     h.Checksum,
			AdditionalFields: map[string]uint64{
				"length": uint64(h.Length),
			},
		}
	default:
		return TextPacket{}, fmt.Errorf("%w: %T", core.ErrUnsupportedProto, p.L4)
	}

	tp.Metadata.PacketSize = packet.Size(p)
	if w.Now != nil {
		tp.Metadata.Timestamp = uint64(w.Now().UnixMilli())
	}
	if w.IncludeRawData {
		frame, err := packet.Assemble(p)
		if err != nil {
			return TextPacket{}, err
		}
		tp.Metadata.RawData = parse.EncodeHex(frame)
	}
	return tp, nil
}

// Encode returns p as a single text document.
func (w *TextWriter) Encode(p *core.NetworkPacket) ([]byte, error) {
	tp, err := w.Convert(p)
	if err != nil {
		return nil, err
	}
	return w.marshal(tp)
}

// EncodeBatch returns packets as one JSON array or YAML sequence.
func (w *TextWriter) EncodeBatch(packets []*core.NetworkPacket) ([]byte, error) {
	tps := make([]TextPacket, 0, len(packets))
	for _, p := range packets {
		tp, err := w.Convert(p)
		if err != nil {
			return nil, err
		}
		tps = append(tps, tp)
	}
	return w.marshal(tps)
}

// WritePacket appends p as one more document: newline-delimited JSON or a
// "---" separated YAML stream.
func (w *TextWriter) WritePacket(p *core.NetworkPacket) error {
	doc, err := w.Encode(p)
	if err != nil {
		return err
	}
	if w.Encoding == EncodingYAML && w.docs > 0 {
		w.buf.WriteString("---\n")
	}
	w.buf.Write(doc)
	if w.Encoding == EncodingJSON {
		w.buf.WriteByte('\n')
	}
	w.docs++
	return nil
}

// Bytes returns the documents written so far.
func (w *TextWriter) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *TextWriter) marshal(v any) ([]byte, error) {
	switch w.Encoding {
	case EncodingYAML:
		return yaml.Marshal(v)
	default:
		if w.Indent != "" {
			return json.MarshalIndent(v, "", w.Indent)
		}
		return json.Marshal(v)
	}
}

// DecodeText parses one text document back into its structure. It does not
// reconstruct a sendable packet.
func DecodeText(data []byte, enc Encoding) (TextPacket, error) {
	var tp TextPacket
	if err := unmarshal(data, enc, &tp); err != nil {
		return TextPacket{}, err
	}
	return tp, nil
}

// DecodeTextBatch parses a JSON array or YAML sequence of packets.
func DecodeTextBatch(data []byte, enc Encoding) ([]TextPacket, error) {
	var tps []TextPacket
	if err := unmarshal(data, enc, &tps); err != nil {
		return nil, err
	}
	return tps, nil
}

func unmarshal(data []byte, enc Encoding, v any) error {
	var err error
	switch enc {
	case EncodingYAML:
		err = yaml.Unmarshal(data, v)
	default:
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		return &core.FormatError{Reason: err.Error()}
	}
	return nil
}
