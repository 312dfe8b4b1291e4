// Package core defines sentinel errors.
package core

import (
	"errors"
	"fmt"
)

// Sentinel errors; typed errors below match them with errors.Is.
var (
	// Input errors
	ErrMissingRequiredField = errors.New("pktforge: missing required field")
	ErrInvalidIPv4          = errors.New("pktforge: invalid IPv4 address")
	ErrTooManyOctets        = errors.New("pktforge: too many octets in IPv4 address")
	ErrNotEnoughOctets      = errors.New("pktforge: not enough octets in IPv4 address")
	ErrInvalidMAC           = errors.New("pktforge: invalid MAC address")
	ErrInvalidHex           = errors.New("pktforge: invalid hex value")

	// Encoding errors
	ErrInvalidLengthBytes = errors.New("pktforge: invalid byte length")
	ErrValueTooLarge      = errors.New("pktforge: value too large for byte length")

	// Format I/O errors
	ErrInvalidFormat     = errors.New("pktforge: invalid format")
	ErrUnsupportedFormat = errors.New("pktforge: unsupported format")

	// Packet decoding errors
	ErrPacketTooShort   = errors.New("pktforge: packet too short")
	ErrUnsupportedProto = errors.New("pktforge: unsupported protocol")
	ErrBadChecksum      = errors.New("pktforge: checksum mismatch")

	// Sink errors
	ErrInterfaceNotFound = errors.New("pktforge: network interface not found")
	ErrSendUnsupported   = errors.New("pktforge: raw send not supported on this platform")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktforge: invalid configuration")
)

// MissingRequiredFieldError names the construction parameter that was absent.
type MissingRequiredFieldError struct {
	Name string
}

func (e *MissingRequiredFieldError) Error() string {
	return fmt.Sprintf("pktforge: missing required field: %s", e.Name)
}

func (e *MissingRequiredFieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// InvalidLengthBytesError reports a byte width outside {1, 2, 4, 8}.
type InvalidLengthBytesError struct {
	Size int
}

func (e *InvalidLengthBytesError) Error() string {
	return fmt.Sprintf("pktforge: invalid byte length %d (must be 1, 2, 4 or 8)", e.Size)
}

func (e *InvalidLengthBytesError) Is(target error) bool {
	return target == ErrInvalidLengthBytes
}

// ValueTooLargeError reports a value that does not fit in Size bytes.
type ValueTooLargeError struct {
	Value uint64
	Size  int
}

func (e *ValueTooLargeError) Error() string {
	return fmt.Sprintf("pktforge: value %d does not fit in %d bytes", e.Value, e.Size)
}

func (e *ValueTooLargeError) Is(target error) bool {
	return target == ErrValueTooLarge
}

// FormatError reports malformed capture or text input.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "pktforge: invalid format: " + e.Reason
}

func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}
