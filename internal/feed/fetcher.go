package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Fetcher retrieves raw syndication payloads. One failed source never aborts
// its siblings: the source key is simply absent from the result.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// FetchAll fetches every topic's sources concurrently and returns raw payload
// text keyed by topic then source, for the sources that succeeded.
func (f *Fetcher) FetchAll(ctx context.Context, topics map[string]map[string]string) map[string]map[string]string {
	results := make(map[string]map[string]string, len(topics))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for topic, sources := range topics {
		wg.Add(1)
		go func(topic string, sources map[string]string) {
			defer wg.Done()
			payloads := f.FetchTopic(ctx, topic, sources)
			mu.Lock()
			results[topic] = payloads
			mu.Unlock()
		}(topic, sources)
	}
	wg.Wait()

	return results
}

// FetchTopic fetches all of one topic's sources together.
func (f *Fetcher) FetchTopic(ctx context.Context, topic string, sources map[string]string) map[string]string {
	payloads := make(map[string]string, len(sources))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for source, url := range sources {
		wg.Add(1)
		go func(source, url string) {
			defer wg.Done()
			body, err := f.fetchOne(ctx, url)
			if err != nil {
				slog.Warn("skipping source, fetch failed", "topic", topic, "source", source, "error", err)
				return
			}
			mu.Lock()
			payloads[source] = body
			mu.Unlock()
		}(source, url)
	}
	wg.Wait()

	return payloads
}

// fetchOne does a single GET with no retries; retry policy belongs to the
// refresh scheduler.
func (f *Fetcher) fetchOne(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if !textual(resp.Header.Get("Content-Type")) {
		return "", fmt.Errorf("get %s: non-text content type %q", url, resp.Header.Get("Content-Type"))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", url, err)
	}
	return string(body), nil
}

func textual(contentType string) bool {
	if contentType == "" {
		return true // many feeds omit it; let the parser decide
	}
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "xml") || strings.Contains(ct, "text") || strings.Contains(ct, "json")
}
