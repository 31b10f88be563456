package ledger

import (
	"context" // Context for blocking calls
	"time"    // Time durations

	"github.com/cenkalti/backoff/v4" // Retry with backoff
	"github.com/pkg/errors"          // Error wrapping
)

var (
	confirmInitialInterval = 400 * time.Millisecond // First poll delay
	confirmMaxInterval     = 3 * time.Second        // Poll delay cap
)

var errPending = errors.New("pending") // Retried until the deadline

// waitConfirmed polls until poll reports the transaction reached the wanted
// commitment. poll returns a permanent error for a transaction that failed
// on chain; other errors are retried until timeout.
func waitConfirmed(ctx context.Context, timeout time.Duration, poll func(context.Context) (bool, error)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = confirmInitialInterval
	b.MaxInterval = confirmMaxInterval
	b.MaxElapsedTime = timeout // Overall confirmation window
	b.Reset()

	err := backoff.Retry(func() error {
		done, err := poll(ctx)
		if err != nil {
			return err
		}
		if !done {
			return errPending
		}
		return nil
	}, backoff.WithContext(b, ctx))

	if errors.Is(err, errPending) {
		return ErrNotConfirmed
	}
	return err
}
