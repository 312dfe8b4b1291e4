package sender

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"

	"firestige.xyz/pktforge/internal/log"
)

// Retrying wraps a Sender and retries transient send failures with
// exponential backoff.
type Retrying struct {
	next     Sender
	maxTries uint
	// NewBackOff builds the schedule for one Send. Tests swap in a zero backoff.
	NewBackOff func() backoff.BackOff
}

// NewRetrying gives each frame up to 1+retries attempts.
func NewRetrying(next Sender, retries int) *Retrying {
	if retries < 0 {
		retries = 0
	}
	return &Retrying{
		next:       next,
		maxTries:   uint(retries) + 1,
		NewBackOff: defaultBackOff,
	}
}

func defaultBackOff() backoff.BackOff {
	return &backoff.ExponentialBackOff{
		InitialInterval:     10 * time.Millisecond,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         time.Second,
	}
}

func (r *Retrying) Send(ctx context.Context, frame []byte) (int, error) {
	b := r.NewBackOff()
	b.Reset()

	return backoff.Retry(ctx, func() (int, error) {
		n, err := r.next.Send(ctx, frame)
		if err != nil && !IsTransient(err) {
			return n, backoff.Permanent(err)
		}
		return n, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.maxTries),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.GetLogger().WithError(err).Warnf("send of %d bytes failed, retrying in %s", len(frame), d)
		}),
	)
}

func (r *Retrying) Close() error { return r.next.Close() }

// IsTransient reports whether a send error is worth retrying: a full socket
// buffer or an interrupted call.
func IsTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.ENOBUFS) ||
		errors.Is(err, syscall.EINTR)
}
