package goathena

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/aws/smithy-go"
)

const (
	defaultMaxRetryAttempts = 5
	defaultRetryBaseWait    = 1 * time.Second
	defaultRetryMaxWait     = 100 * time.Second
)

// retryableErrorCodes are the service error codes that indicate a
// transient condition worth retrying.
var retryableErrorCodes = map[string]struct{}{
	"ThrottlingException":      {},
	"TooManyRequestsException": {},
	"InternalServerException":  {},
	"SlowDown":                 {},
}

// RetryConfig controls how API calls are retried on throttling.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first.
	MaxAttempts int
	// BaseWait is the minimum wait between attempts.
	BaseWait time.Duration
	// MaxWait caps the wait between attempts.
	MaxWait time.Duration
}

func defaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: defaultMaxRetryAttempts,
		BaseWait:    defaultRetryBaseWait,
		MaxWait:     defaultRetryMaxWait,
	}
}

func durationMin(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func durationMax(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}

// waitAlgo implements decorrelated jitter backoff. The next sleep is
// drawn uniformly from [base, 3*previous] and capped.
type waitAlgo struct {
	mutex sync.Mutex
	base  time.Duration
	cap   time.Duration
}

func (w *waitAlgo) decorr(sleep time.Duration) time.Duration {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	t := 3*sleep - w.base
	switch {
	case t > 0:
		return durationMin(w.cap, randSecondDuration(w.base, w.base+t))
	case t < 0:
		return durationMin(w.cap, randSecondDuration(w.base+t, w.base))
	}
	return w.base
}

func randSecondDuration(n, m time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(m-n))) + n
}

// isRetryableError reports whether err is a transient service or
// network failure. Validation and access errors are never retried.
func isRetryableError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		_, ok := retryableErrorCodes[apiErr.ErrorCode()]
		return ok
	}
	return false
}

// sleepContext pauses for d or until ctx is cancelled, whichever comes
// first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryAPICall invokes fn until it succeeds, returns a non-retryable
// error, or the attempt budget is exhausted. The last error is
// returned as-is so callers can classify it.
func retryAPICall[T any](ctx context.Context, cfg *RetryConfig, operation string, fn func(context.Context) (T, error)) (T, error) {
	if cfg == nil {
		cfg = defaultRetryConfig()
	}
	algo := &waitAlgo{
		base: durationMax(cfg.BaseWait, time.Millisecond),
		cap:  durationMax(cfg.MaxWait, cfg.BaseWait),
	}
	var result T
	var err error
	sleep := algo.base
	for attempt := 1; ; attempt++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if !isRetryableError(err) || attempt >= cfg.MaxAttempts {
			return result, err
		}
		sleep = algo.decorr(sleep)
		logger.WithContext(ctx).Warnf(
			"retrying %v after attempt %v of %v in %v. err: %v",
			operation, attempt, cfg.MaxAttempts, sleep, err)
		if serr := sleepContext(ctx, sleep); serr != nil {
			return result, serr
		}
	}
}
