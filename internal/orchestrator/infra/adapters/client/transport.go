// Package client holds the HTTP adapters for the four downstream services the
// orchestrator calls. Every adapter performs exactly one kind of remote call
// and reports transport problems as entity.ErrUnavailable.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/globalbooks-orchestrator/internal/orchestrator/core/domain/entity"
)

// RetryPolicy controls how often an adapter repeats a failed call.
// The zero value means a single attempt.
type RetryPolicy struct {
	MaxAttempts uint
	// InitialBackoff is the first wait between attempts; later waits grow
	// exponentially.
	InitialBackoff time.Duration
}

// SingleAttempt is the default policy: every call is tried once.
func SingleAttempt() RetryPolicy { return RetryPolicy{MaxAttempts: 1} }

func (p RetryPolicy) attempts() uint {
	if p.MaxAttempts == 0 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) backOff() backoff.BackOff {
	if p.InitialBackoff <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialBackoff
	return b
}

// NewHTTPClient returns the client shared by all adapters. The timeout bounds
// every downstream call; otelhttp propagates the trace context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// endpoint is the part common to every adapter: where to call and how.
type endpoint struct {
	httpClient *http.Client
	url        string
	retry      RetryPolicy
}

func newEndpoint(httpClient *http.Client, baseURL, path string, retry RetryPolicy) endpoint {
	if httpClient == nil {
		httpClient = NewHTTPClient(10 * time.Second)
	}
	return endpoint{
		httpClient: httpClient,
		url:        strings.TrimRight(baseURL, "/") + path,
		retry:      retry,
	}
}

// exchange sends one request per attempt and lets handle decode the
// response. entity.ErrNotFound is never retried. Every other failure ends up
// wrapped in entity.ErrUnavailable.
func (e endpoint) exchange(
	ctx context.Context,
	op string,
	newRequest func(ctx context.Context) (*http.Request, error),
	handle func(resp *http.Response) error,
) error {
	attempt := func() (struct{}, error) {
		req, err := newRequest(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("%w: %s: build request: %v", entity.ErrUnavailable, op, err))
		}

		resp, err := e.httpClient.Do(req)
		if err != nil {
			return struct{}{}, fmt.Errorf("%w: %s: %v", entity.ErrUnavailable, op, err)
		}
		defer resp.Body.Close()

		if err := handle(resp); err != nil {
			if errors.Is(err, entity.ErrNotFound) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	}

	_, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(e.retry.backOff()),
		backoff.WithMaxTries(e.retry.attempts()),
	)
	if err == nil {
		return nil
	}
	if errors.Is(err, entity.ErrUnavailable) || errors.Is(err, entity.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", entity.ErrUnavailable, op, err)
}

// unexpectedStatus reports a non-success response, keeping a short excerpt
// of the body for the logs.
func unexpectedStatus(op string, resp *http.Response) error {
	excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%w: %s returned status %d: %s", entity.ErrUnavailable, op, resp.StatusCode, strings.TrimSpace(string(excerpt)))
}

func isSuccess(code int) bool {
	return code >= 200 && code < 300
}
