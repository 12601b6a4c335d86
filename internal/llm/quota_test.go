package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type scriptedClient struct {
	errs  []error
	calls int
}

func (s *scriptedClient) GenerateContent(_ context.Context, prompt string, _ ModelTier) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return "echo: " + prompt, nil
}

func (s *scriptedClient) GetModel(ModelTier) string { return "fake-model" }
func (s *scriptedClient) Close() error              { return nil }

func newTestQuotaClient(next Client) *QuotaClient {
	q := NewQuotaClient(next, 600, RetryConfig{MaxRetries: 2, InitialDelay: time.Millisecond})
	q.sleep = func(context.Context, time.Duration) error { return nil }
	return q
}

func TestQuotaClient_PassThrough(t *testing.T) {
	next := &scriptedClient{}
	q := newTestQuotaClient(next)

	out, err := q.GenerateContent(context.Background(), "hi", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "fake-model", q.GetModel(TierStandard))
}

func TestQuotaClient_RetriesTransient(t *testing.T) {
	next := &scriptedClient{errs: []error{
		&googleapi.Error{Code: 429},
		fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 503}),
	}}
	q := newTestQuotaClient(next)

	out, err := q.GenerateContent(context.Background(), "hi", TierStandard)
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)
	assert.Equal(t, 3, next.calls)
}

func TestQuotaClient_GivesUpAfterMaxRetries(t *testing.T) {
	transient := &googleapi.Error{Code: 500}
	next := &scriptedClient{errs: []error{transient, transient, transient, transient}}
	q := newTestQuotaClient(next)

	_, err := q.GenerateContent(context.Background(), "hi", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestQuotaClient_NoRetryOnPermanent(t *testing.T) {
	next := &scriptedClient{errs: []error{&googleapi.Error{Code: 400}}}
	q := newTestQuotaClient(next)

	_, err := q.GenerateContent(context.Background(), "hi", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}

func TestQuotaClient_CanceledContext(t *testing.T) {
	next := &scriptedClient{}
	q := NewQuotaClient(next, 1, RetryConfig{})
	// Drain the single burst token so Wait must block.
	require.True(t, q.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.GenerateContent(ctx, "hi", TierStandard)
	require.Error(t, err)
	assert.Equal(t, 0, next.calls)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(errors.New("boom")))
	assert.True(t, IsTransient(&googleapi.Error{Code: 502}))
	assert.False(t, IsTransient(&googleapi.Error{Code: 403}))
}
