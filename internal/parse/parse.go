// Package parse turns user supplied address, hex and payload strings into
// the values the packet builders consume.
package parse

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"firestige.xyz/pktforge/internal/core"
)

// IPv4 parses a dotted-quad address.
func IPv4(s string) (core.IPv4Addr, error) {
	var addr core.IPv4Addr
	parts := strings.Split(s, ".")
	if len(parts) > len(addr) {
		return addr, fmt.Errorf("%w: %q", core.ErrTooManyOctets, s)
	}
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return addr, fmt.Errorf("%w: %q", core.ErrInvalidIPv4, s)
		}
		addr[i] = byte(v)
	}
	if len(parts) < len(addr) {
		return addr, fmt.Errorf("%w: %q", core.ErrNotEnoughOctets, s)
	}
	return addr, nil
}

// MAC parses six colon separated two-digit hex groups.
func MAC(s string) (core.MAC, error) {
	var mac core.MAC
	parts := strings.Split(s, ":")
	if len(parts) != len(mac) {
		return mac, fmt.Errorf("%w: %q", core.ErrInvalidMAC, s)
	}
	for i, part := range parts {
		if len(part) != 2 {
			return mac, fmt.Errorf("%w: %q", core.ErrInvalidMAC, s)
		}
		v, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			return mac, fmt.Errorf("%w: %q in %q", core.ErrInvalidHex, part, s)
		}
		mac[i] = byte(v)
	}
	return mac, nil
}

// Hex parses a single byte written in hex with an optional 0x prefix.
func Hex(s string) (uint8, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(trimmed, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", core.ErrInvalidHex, s)
	}
	return uint8(v), nil
}

// HexBytes decodes a hex string into bytes. Whitespace and colons between
// digit pairs are ignored, so "AA BB", "aa:bb" and "0xaabb" are all accepted.
func HexBytes(s string) ([]byte, error) {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(s), "0x"), "0X")
	cleaned = strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(cleaned)
	b, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidHex, err)
	}
	return b, nil
}

// EncodeHex renders data as space separated uppercase hex pairs.
func EncodeHex(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(data)*3 - 1)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
