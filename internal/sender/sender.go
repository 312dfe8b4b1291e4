// Package sender puts assembled frames on the wire through a raw
// link-layer socket.
package sender

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gobwas/glob"

	"firestige.xyz/pktforge/internal/core"
)

// DefaultInterfaces is the interface priority list tried when none is
// configured.
var DefaultInterfaces = []string{"eth0", "enp0s3", "wlan0", "lo"}

// Sender transmits complete Ethernet frames.
type Sender interface {
	Send(ctx context.Context, frame []byte) (int, error)
	Close() error
}

// Options configures Open.
type Options struct {
	Interface string
	Timeout   time.Duration
}

// Open returns a raw socket sender bound to opts.Interface. It needs
// CAP_NET_RAW and is only available on Linux.
func Open(opts Options) (Sender, error) {
	return openRaw(opts)
}

// InterfaceLister returns the host's interfaces. net.Interfaces satisfies it.
type InterfaceLister func() ([]net.Interface, error)

// SelectInterface returns the first up interface matching a pattern,
// trying patterns in order.
func SelectInterface(patterns []string, list InterfaceLister) (string, error) {
	if len(patterns) == 0 {
		patterns = DefaultInterfaces
	}
	if list == nil {
		list = net.Interfaces
	}

	ifaces, err := list()
	if err != nil {
		return "", fmt.Errorf("list interfaces: %w", err)
	}

	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return "", fmt.Errorf("interface pattern %q: %w", p, err)
		}
		for _, ifi := range ifaces {
			if ifi.Flags&net.FlagUp == 0 {
				continue
			}
			if g.Match(ifi.Name) {
				return ifi.Name, nil
			}
		}
	}
	return "", fmt.Errorf("%w: no up interface matches %v", core.ErrInterfaceNotFound, patterns)
}

// Discard counts frames without sending them. Used for dry runs.
type Discard struct {
	Frames int
	Bytes  int
}

func (d *Discard) Send(ctx context.Context, frame []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.Frames++
	d.Bytes += len(frame)
	return len(frame), nil
}

func (d *Discard) Close() error { return nil }
