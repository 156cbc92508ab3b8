package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ArticlesFetched       int64
	EntriesDropped        int64
	NearDuplicatesRemoved int64
	ArticlesUpserted      int64
	EmbeddingCalls        int64
	EmbeddingFailures     int64
	SearchesServed        int64
	RecommendationsServed int64

	// Timings
	LastRefreshDuration time.Duration
	TotalRefreshTime    time.Duration
	RefreshCount        int64

	// Status
	LastRefreshTime time.Time
	LastErrorTime   time.Time
	LastError       string
	IsHealthy       bool
}

var Global = &Metrics{IsHealthy: true}

func (m *Metrics) AddArticlesFetched(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesFetched += int64(n)
}

func (m *Metrics) AddEntriesDropped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EntriesDropped += int64(n)
}

func (m *Metrics) AddNearDuplicatesRemoved(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NearDuplicatesRemoved += int64(n)
}

func (m *Metrics) AddArticlesUpserted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ArticlesUpserted += int64(n)
}

func (m *Metrics) IncrementEmbeddingCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbeddingCalls++
}

func (m *Metrics) IncrementEmbeddingFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EmbeddingFailures++
}

func (m *Metrics) IncrementSearchesServed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchesServed++
}

func (m *Metrics) IncrementRecommendationsServed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecommendationsServed++
}

func (m *Metrics) RecordRefresh(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRefreshDuration = duration
	m.TotalRefreshTime += duration
	m.RefreshCount++
	m.LastRefreshTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err.Error()
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

// GetStats returns a snapshot for the monitoring endpoints.
func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"articles_fetched":        m.ArticlesFetched,
		"entries_dropped":         m.EntriesDropped,
		"near_duplicates_removed": m.NearDuplicatesRemoved,
		"articles_upserted":       m.ArticlesUpserted,
		"embedding_calls":         m.EmbeddingCalls,
		"embedding_failures":      m.EmbeddingFailures,
		"searches_served":         m.SearchesServed,
		"recommendations_served":  m.RecommendationsServed,
		"last_refresh_duration":   m.LastRefreshDuration.String(),
		"refresh_count":           m.RefreshCount,
		"last_refresh_time":       m.LastRefreshTime,
		"last_error":              m.LastError,
		"last_error_time":         m.LastErrorTime,
		"is_healthy":              m.IsHealthy,
	}
}
