package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/nba-endpoint-analyzer/pkg/models"
)

const (
	// DefaultRetryAttempts is the number of tries per network call
	DefaultRetryAttempts = 3
	// DefaultRetryPause is the fixed wait between tries
	DefaultRetryPause = 600 * time.Millisecond
)

// ErrRetriesExhausted is returned when every attempt of a call failed
var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryingTransport retries transport failures with a fixed pause
type RetryingTransport struct {
	Next     Transport
	Attempts int
	Pause    time.Duration
	// Timeout bounds each attempt; zero leaves it to the wrapped transport
	Timeout time.Duration
	Logger  *logrus.Logger
}

// NewRetryingTransport wraps next with the retry policy
func NewRetryingTransport(next Transport, attempts int, pause, timeout time.Duration, logger *logrus.Logger) *RetryingTransport {
	if attempts < 1 {
		attempts = DefaultRetryAttempts
	}
	if pause < 0 {
		pause = DefaultRetryPause
	}
	return &RetryingTransport{
		Next:     next,
		Attempts: attempts,
		Pause:    pause,
		Timeout:  timeout,
		Logger:   logger,
	}
}

// SendRequest calls the wrapped transport until it succeeds or attempts run out
func (rt *RetryingTransport) SendRequest(ctx context.Context, endpoint string, params *models.Parameters) (*Response, error) {
	var resp *Response
	attempt := 0

	operation := func() error {
		attempt++
		callCtx := ctx
		if rt.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, rt.Timeout)
			defer cancel()
		}

		r, err := rt.Next.SendRequest(callCtx, endpoint, params)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		rt.Logger.Warningf("Request to %s failed (attempt %d/%d): %v; retrying in %s", endpoint, attempt, rt.Attempts, err, wait)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(rt.Pause), uint64(rt.Attempts-1)),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		rt.Logger.Errorf("Request to %s failed after %d attempts: %v", endpoint, attempt, err)
		return nil, fmt.Errorf("%w: %s after %d attempts: %v", ErrRetriesExhausted, endpoint, attempt, err)
	}
	return resp, nil
}
