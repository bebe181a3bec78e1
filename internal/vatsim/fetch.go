package vatsim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fetcher pulls one snapshot of the network feed per call.
type Fetcher struct {
	url    string
	client *http.Client
}

func NewFetcher(url string) *Fetcher {
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch performs a single GET of the feed and decodes it. Any network
// or decode error means no snapshot for this poll; the caller skips
// the iteration.
func (f *Fetcher) Fetch(ctx context.Context) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching feed: unexpected status %d", resp.StatusCode)
	}

	var ext extSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&ext); err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}
	return ext.convert(), nil
}
