//go:build linux

package sender

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/sys/unix"

	"firestige.xyz/pktforge/internal/core"
)

// rawSocket is an AF_PACKET/SOCK_RAW socket. Frames are sent as-is,
// Ethernet header included.
type rawSocket struct {
	fd      int
	ifindex int
}

func htons(v uint16) uint16 { return v<<8 | v>>8 }

func openRaw(opts Options) (Sender, error) {
	ifi, err := net.InterfaceByName(opts.Interface)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrInterfaceNotFound, opts.Interface)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("open raw socket: %w", err)
	}

	if opts.Timeout > 0 {
		tv := unix.NsecToTimeval(opts.Timeout.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set send timeout: %w", err)
		}
	}

	return &rawSocket{fd: fd, ifindex: ifi.Index}, nil
}

func (s *rawSocket) Send(ctx context.Context, frame []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(frame) < 14 {
		return 0, fmt.Errorf("%w: %d bytes", core.ErrPacketTooShort, len(frame))
	}

	addr := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  s.ifindex,
		Halen:    6,
	}
	copy(addr.Addr[:6], frame[:6])

	if err := unix.Sendto(s.fd, frame, 0, addr); err != nil {
		return 0, fmt.Errorf("sendto: %w", err)
	}
	return len(frame), nil
}

func (s *rawSocket) Close() error {
	return unix.Close(s.fd)
}
