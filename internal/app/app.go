// Package app orchestrates the ingestion cycle and the query services.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"newspulse/internal/config"
	"newspulse/internal/dedupe"
	"newspulse/internal/embed"
	"newspulse/internal/feed"
	"newspulse/internal/metrics"
	"newspulse/internal/rank"
	"newspulse/internal/recommend"
)

// ArticleStore is the persistence collaborator. It owns transactional
// atomicity for batch upserts and provides the lexical index capability.
type ArticleStore interface {
	UpsertArticles(ctx context.Context, articles []feed.Article) error
	SearchCandidates(ctx context.Context, query string) ([]rank.Candidate, error)
	UnseenCandidates(ctx context.Context, excludeIDs []int64) ([]rank.Candidate, error)
	LatestHistory(ctx context.Context, userID int64, n int) ([]recommend.HistoryEntry, error)
	RecordView(ctx context.Context, userID, articleID int64) error
}

// Service wires fetching, normalization, deduplication, scoring and the
// store. Query methods degrade to empty results on failure; the returned
// error exists for logging and metrics, never to break the user-facing flow.
type Service struct {
	cfg          *config.Config
	store        ArticleStore
	embedder     embed.Provider
	fetcher      *feed.Fetcher
	normalizer   *feed.Normalizer
	searchScorer *rank.Scorer
	scoredScorer *rank.Scorer
	queryCache   *embed.QueryCache
}

// scoredVariantWeights shift the ordering blend toward relevance for the
// debugging/"show me the scores" search variant.
var scoredVariantWeights = rank.Weights{
	Lexical:  0.6,
	Semantic: 0.4,
	Hybrid:   0.8,
	Recency:  0.2,
}

const scoredVariantMinScore = 0.1

func New(cfg *config.Config, store ArticleStore, embedder embed.Provider) (*Service, error) {
	zone, err := time.LoadLocation(cfg.DisplayTimeZone)
	if err != nil {
		return nil, fmt.Errorf("load display zone %q: %w", cfg.DisplayTimeZone, err)
	}

	weights := rank.Weights{
		Lexical:  cfg.LexicalWeight,
		Semantic: cfg.SemanticWeight,
		Hybrid:   cfg.HybridWeight,
		Recency:  cfg.RecencyWeight,
	}

	return &Service{
		cfg:          cfg,
		store:        store,
		embedder:     embedder,
		fetcher:      feed.NewFetcher(cfg.FetchTimeout),
		normalizer:   feed.NewNormalizer(zone),
		searchScorer: rank.NewScorer(weights, cfg.DecayWindowDays),
		scoredScorer: rank.NewScorer(scoredVariantWeights, cfg.DecayWindowDays),
		queryCache:   embed.NewQueryCache(cfg.QueryCacheTTL),
	}, nil
}

// Refresh runs one full ingestion cycle: fetch, normalize, embed, dedupe,
// upsert. Partial topic results are processed as-is.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()

	sources, err := feed.LoadSources(s.cfg.FeedsConfigPath)
	if err != nil {
		metrics.Global.SetError(err)
		return fmt.Errorf("load feed sources: %w", err)
	}

	raw := s.fetcher.FetchAll(ctx, sources.Topics)

	var candidates []feed.Article
	for _, topic := range sources.TopicNames() {
		candidates = append(candidates, s.normalizer.Normalize(topic, raw[topic])...)
	}
	metrics.Global.AddArticlesFetched(len(candidates))
	slog.Info("fetch cycle parsed", "articles", len(candidates))

	candidates, embedded := s.AttachEmbeddings(ctx, candidates)
	if embedded {
		candidates = dedupe.FilterNearDuplicates(candidates, s.cfg.SimilarityThreshold)
	} else {
		// Never run the similarity filter on partial vectors; skipping is
		// correct, running it silently wrong.
		slog.Warn("embeddings unavailable, skipping near-duplicate filter")
	}

	batch := dedupe.CollapseIdentity(candidates)

	if err := s.store.UpsertArticles(ctx, batch); err != nil {
		metrics.Global.SetError(err)
		return fmt.Errorf("upsert batch: %w", err)
	}

	metrics.Global.AddArticlesUpserted(len(batch))
	metrics.Global.RecordRefresh(time.Since(start))
	slog.Info("refresh cycle done", "upserted", len(batch), "took", time.Since(start))
	return nil
}

// AttachEmbeddings batch-encodes all titles and returns fully populated
// copies. When the provider fails the original candidates come back
// unchanged with ok=false; ingestion still proceeds without vectors.
func (s *Service) AttachEmbeddings(ctx context.Context, articles []feed.Article) ([]feed.Article, bool) {
	if len(articles) == 0 {
		return articles, true
	}

	titles := make([]string, len(articles))
	for i, a := range articles {
		titles[i] = a.Title
	}

	vectors, err := s.embedder.Encode(ctx, titles)
	if err != nil {
		slog.Error("title embedding failed", "error", err)
		return articles, false
	}

	result := make([]feed.Article, len(articles))
	for i, a := range articles {
		result[i] = a.WithEmbedding(vectors[i])
	}
	return result, true
}

// Search runs the hybrid query against the corpus: lexical rank from the
// store, semantic and recency computed here, hybrid gate then combined
// ordering. A storage or provider failure yields an empty result, with the
// error returned for observability only.
func (s *Service) Search(ctx context.Context, query string, skip, limit int) ([]rank.Scored, error) {
	return s.search(ctx, query, s.searchScorer, s.cfg.MinHybridScore, skip, limit)
}

// SearchWithScores is the diagnostic variant: same gate mechanics, a
// relevance-heavy ordering blend and a lower admission threshold.
func (s *Service) SearchWithScores(ctx context.Context, query string, skip, limit int) ([]rank.Scored, error) {
	return s.search(ctx, query, s.scoredScorer, scoredVariantMinScore, skip, limit)
}

func (s *Service) search(ctx context.Context, query string, scorer *rank.Scorer, minScore float64, skip, limit int) ([]rank.Scored, error) {
	queryEmbedding, err := s.encodeQuery(ctx, query)
	if err != nil {
		slog.Error("search degraded to empty, query embedding failed", "error", err)
		return []rank.Scored{}, err
	}

	candidates, err := s.store.SearchCandidates(ctx, query)
	if err != nil {
		slog.Error("search degraded to empty, candidate query failed", "error", err)
		return []rank.Scored{}, err
	}

	metrics.Global.IncrementSearchesServed()
	return scorer.Rank(queryEmbedding, candidates, minScore, skip, limit), nil
}

func (s *Service) encodeQuery(ctx context.Context, query string) ([]float64, error) {
	if vec, ok := s.queryCache.Get(query); ok {
		return vec, nil
	}

	vectors, err := s.embedder.Encode(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("provider returned no vector for query")
	}

	s.queryCache.Set(query, vectors[0])
	return vectors[0], nil
}

// Recommend ranks unseen articles against the user's time-decayed profile
// vector. Zero history is a normal state and returns an empty feed; any
// failure also degrades to an empty feed rather than a user-visible error.
func (s *Service) Recommend(ctx context.Context, userID int64, skip, limit int) ([]recommend.Ranked, error) {
	history, err := s.store.LatestHistory(ctx, userID, s.cfg.HistoryLength)
	if err != nil {
		slog.Error("recommendation degraded to empty, history fetch failed", "user", userID, "error", err)
		return []recommend.Ranked{}, err
	}
	if len(history) == 0 {
		return []recommend.Ranked{}, nil // no personalization signal yet
	}

	profile := recommend.ProfileVector(history, s.cfg.DecayStrength)
	if profile == nil {
		return []recommend.Ranked{}, nil
	}

	seen := make([]int64, len(history))
	for i, h := range history {
		seen[i] = h.ArticleID
	}

	candidates, err := s.store.UnseenCandidates(ctx, seen)
	if err != nil {
		slog.Error("recommendation degraded to empty, candidate query failed", "user", userID, "error", err)
		return []recommend.Ranked{}, err
	}

	metrics.Global.IncrementRecommendationsServed()
	return recommend.RankByProfile(profile, candidates, s.cfg.RecencyFactor, time.Now(), skip, limit), nil
}

// RecordView notes that the user opened an article; a repeat view refreshes
// the timestamp instead of adding a row.
func (s *Service) RecordView(ctx context.Context, userID, articleID int64) error {
	return s.store.RecordView(ctx, userID, articleID)
}
