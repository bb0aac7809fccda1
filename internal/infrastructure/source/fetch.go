// Package source implements the package acquisition strategies: registry,
// github, local directory and inline code. All sources share one HTTP fetch
// helper and one tar.gz extractor.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// fetcher is the shared HTTP helper. Failures propagate immediately; there
// is deliberately no retry or backoff around materialization, the caller
// holds the store lock.
type fetcher struct {
	client *http.Client
	token  string
}

func newFetcher(client *http.Client, token string) *fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &fetcher{client: client, token: token}
}

// get performs a GET and returns the body on HTTP 200. The caller closes
// the body.
func (f *fetcher) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

// getJSON performs a GET and decodes the JSON response into out.
func (f *fetcher) getJSON(ctx context.Context, url string, out any) error {
	body, err := f.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}
	return nil
}
