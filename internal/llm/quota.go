package llm

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
)

// QuotaClient decorates a Client with a request rate limit and bounded retries.
type QuotaClient struct {
	next    Client
	limiter *rate.Limiter
	retry   RetryConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewQuotaClient allows requestsPerMinute calls, bursting up to the same number.
func NewQuotaClient(next Client, requestsPerMinute int, retry RetryConfig) *QuotaClient {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 1
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 500 * time.Millisecond
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 5 * time.Second
	}
	if retry.Multiplier == 0 {
		retry.Multiplier = 2.0
	}
	return &QuotaClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(requestsPerMinute)), requestsPerMinute),
		retry:   retry,
		sleep:   sleepCtx,
	}
}

// GenerateContent waits for a token, then calls the wrapped client, retrying transient failures.
func (q *QuotaClient) GenerateContent(ctx context.Context, prompt string, tier ModelTier) (string, error) {
	var (
		text string
		err  error
	)
	delay := q.retry.InitialDelay

	for attempt := 0; attempt <= q.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if serr := q.sleep(ctx, applyJitter(delay)); serr != nil {
				return "", err
			}
			delay = min(time.Duration(float64(delay)*q.retry.Multiplier), q.retry.MaxDelay)
		}

		if werr := q.limiter.Wait(ctx); werr != nil {
			if err != nil {
				return "", err
			}
			return "", werr
		}

		text, err = q.next.GenerateContent(ctx, prompt, tier)
		if err == nil || !IsTransient(err) {
			return text, err
		}
	}
	return "", err
}

// GetModel returns the model name for a tier
func (q *QuotaClient) GetModel(tier ModelTier) string {
	return q.next.GetModel(tier)
}

// Close releases resources held by the wrapped client
func (q *QuotaClient) Close() error {
	return q.next.Close()
}

// IsTransient reports whether err is worth retrying: quota exhaustion, server errors, or network timeouts.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.Code)
	}

	var coded interface{ HTTPCode() int }
	if errors.As(err, &coded) {
		return retryableStatus(coded.HTTPCode())
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}

func applyJitter(delay time.Duration) time.Duration {
	jitterFactor := 0.9 + rand.Float64()*0.2
	return time.Duration(float64(delay) * jitterFactor)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
