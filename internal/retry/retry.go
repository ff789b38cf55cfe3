// Package retry implements exponential retry policy used when establishing transports.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/logging"
)

var log = logging.Module("retry")

//nolint:gochecknoglobals
var (
	maxAttempts             = 5
	retryInitialSleepAmount = 500 * time.Millisecond
	retryMaxSleepAmount     = 8 * time.Second
)

// AttemptFunc performs an attempt and returns a value (optional, may be nil) and an error.
type AttemptFunc[T any] func() (T, error)

// IsRetriableFunc is a function that determines whether an error is retriable.
type IsRetriableFunc func(err error) bool

// WithExponentialBackoff runs the provided attempt until it succeeds, retrying on all errors that are
// deemed retriable by the provided function. The delay between retries grows exponentially up to
// a certain limit.
func WithExponentialBackoff[T any](ctx context.Context, desc string, attempt AttemptFunc[T], isRetriableError IsRetriableFunc) (T, error) {
	var defaultT T

	sleepAmount := retryInitialSleepAmount

	for i := range maxAttempts {
		v, err := attempt()
		if err == nil || !isRetriableError(err) {
			return v, err
		}

		log(ctx).Debugf("got error %v when %v (#%v), sleeping for %v before retrying", err, desc, i, sleepAmount)

		select {
		case <-ctx.Done():
			return defaultT, errors.Wrapf(ctx.Err(), "canceled while %v", desc)
		case <-time.After(sleepAmount):
		}

		sleepAmount *= 2
		if sleepAmount > retryMaxSleepAmount {
			sleepAmount = retryMaxSleepAmount
		}
	}

	return defaultT, errors.Errorf("unable to complete %v despite %v retries", desc, maxAttempts)
}

// Always is a retry function that retries all errors.
func Always(err error) bool {
	return true
}
