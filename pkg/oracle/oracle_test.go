package oracle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evidence-toolkit/core/pkg/schema"
	"github.com/stretchr/testify/require"
)

// countingClient records call counts and returns scripted results, letting
// tests drive retry/cache/limiter behavior without a real HTTP endpoint.
type countingClient struct {
	calls int
	err   error
	doc   *schema.DocumentAnalysis
}

func (c *countingClient) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	c.calls++
	if c.err != nil {
		return nil, CallMeta{}, c.err
	}
	return c.doc, CallMeta{Model: schema.AnalysisModelInfo{Name: "test-model"}}, nil
}
func (c *countingClient) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *countingClient) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *countingClient) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *countingClient) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *countingClient) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}

func TestRetryGivesUpOnRefusal(t *testing.T) {
	inner := &countingClient{err: &OracleRefusal{Reason: "policy"}}
	client := WithRetry(inner, RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, CallTimeout: time.Second})

	_, _, err := client.AnalyzeDocument(context.Background(), DocumentRequest{Text: "hello"})
	require.Error(t, err)
	require.Equal(t, 1, inner.calls, "a refusal must not be retried")
}

func TestRetryRetriesTransientErrors(t *testing.T) {
	inner := &countingClient{err: errors.New("connection reset")}
	client := WithRetry(inner, RetryConfig{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, CallTimeout: time.Second})

	_, _, err := client.AnalyzeDocument(context.Background(), DocumentRequest{Text: "hello"})
	require.Error(t, err)
	require.Equal(t, 3, inner.calls, "a transient error should be retried up to MaxAttempts")
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	inner := &countingClient{doc: &schema.DocumentAnalysis{Summary: "ok"}}
	attempts := 0
	wrapped := &flakyOnceTwice{inner: inner, failN: 2, counter: &attempts}
	client := WithRetry(wrapped, RetryConfig{MaxAttempts: 5, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, CallTimeout: time.Second})

	out, _, err := client.AnalyzeDocument(context.Background(), DocumentRequest{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Summary)
}

type flakyOnceTwice struct {
	inner   *countingClient
	failN   int
	counter *int
}

func (f *flakyOnceTwice) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	*f.counter++
	if *f.counter <= f.failN {
		return nil, CallMeta{}, errors.New("transient")
	}
	return f.inner.doc, CallMeta{}, nil
}
func (f *flakyOnceTwice) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (f *flakyOnceTwice) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (f *flakyOnceTwice) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (f *flakyOnceTwice) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (f *flakyOnceTwice) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}

func TestConcurrencyCapBoundsInFlight(t *testing.T) {
	inner := &blockingClient{release: make(chan struct{})}
	client := WithConcurrencyCap(inner, 2, 0)

	ctx := context.Background()
	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		go func() {
			_, _, _ = client.AnalyzeDocument(ctx, DocumentRequest{})
			done <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.LessOrEqual(t, inner.active.Load(), int64(2))
	close(inner.release)
	for i := 0; i < 3; i++ {
		<-done
	}
}

type blockingClient struct {
	release chan struct{}
	active  atomic.Int64
}

func (c *blockingClient) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*schema.DocumentAnalysis, CallMeta, error) {
	c.active.Add(1)
	<-c.release
	c.active.Add(-1)
	return &schema.DocumentAnalysis{}, CallMeta{}, nil
}
func (c *blockingClient) AnalyzeEmail(ctx context.Context, req EmailRequest) (*schema.EmailAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *blockingClient) AnalyzeImage(ctx context.Context, req ImageRequest) (*schema.ImageAnalysis, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *blockingClient) ResolveEntityPair(ctx context.Context, req EntityPairRequest) (*schema.EntityMatchDecision, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *blockingClient) SummarizeCase(ctx context.Context, req SummarizeRequest) (*schema.ExecutiveSummary, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
func (c *blockingClient) DetectPatterns(ctx context.Context, req PatternsRequest) (*schema.LegalPatterns, CallMeta, error) {
	return nil, CallMeta{}, errors.New("not implemented")
}
