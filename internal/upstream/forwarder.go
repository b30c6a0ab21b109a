// Package upstream performs the outbound call to a supplier's API.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 10 * time.Second
	MaxBodyBytes   = 10 << 20
)

// ErrUnreachable wraps any failure that prevented an upstream status code
// from being received: DNS, connect, TLS, timeout.
var ErrUnreachable = errors.New("upstream unreachable")

// ErrBodyTooLarge means the upstream answered with more than the forwarder
// will buffer. The partial body is discarded, never relayed.
var ErrBodyTooLarge = errors.New("upstream response body too large")

// Response is what came back from the upstream, verbatim.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// Forwarder sends requests to upstream APIs. It never retries.
type Forwarder struct {
	client  *http.Client
	maxBody int64
}

func NewForwarder(timeout time.Duration) *Forwarder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Forwarder{
		client: &http.Client{
			Timeout: timeout,
			// Redirects are returned to the caller as-is.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxBody: MaxBodyBytes,
	}
}

func (f *Forwarder) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return f.Do(ctx, http.MethodGet, url, headers, nil)
}

func (f *Forwarder) Post(ctx context.Context, url string, headers map[string]string, body []byte) (*Response, error) {
	return f.Do(ctx, http.MethodPost, url, headers, body)
}

func (f *Forwarder) Patch(ctx context.Context, url string, headers map[string]string, body []byte) (*Response, error) {
	return f.Do(ctx, http.MethodPatch, url, headers, body)
}

func (f *Forwarder) Delete(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return f.Do(ctx, http.MethodDelete, url, headers, nil)
}

// Do dispatches a single request. Any upstream status, 5xx included, is a
// successful result; only transport failures return an error.
func (f *Forwarder) Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnreachable, method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response body: %v", ErrUnreachable, err)
	}
	if int64(len(respBody)) > f.maxBody {
		return nil, fmt.Errorf("%w: %s %s: more than %d bytes", ErrBodyTooLarge, method, url, f.maxBody)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
