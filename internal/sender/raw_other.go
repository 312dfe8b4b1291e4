//go:build !linux

package sender

import (
	"fmt"
	"runtime"

	"firestige.xyz/pktforge/internal/core"
)

func openRaw(opts Options) (Sender, error) {
	return nil, fmt.Errorf("%w on %s", core.ErrSendUnsupported, runtime.GOOS)
}
