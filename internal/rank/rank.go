// Package rank computes per-article relevance scores for ad-hoc queries.
//
// Two scores matter downstream: the hybrid score (lexical + semantic) gates
// which candidates appear at all, and the combined score (hybrid + recency)
// orders them. Both use the [0,1] similarity convention; distance-based
// ranking lives in package recommend.
package rank

import (
	"math"
	"sort"
	"time"

	"newspulse/internal/embed"
)

// Weights holds the two blend pairs. Each pair must sum to 1 so every score
// stays in [0,1]; config validation enforces that at startup.
type Weights struct {
	Lexical  float64
	Semantic float64
	Hybrid   float64
	Recency  float64
}

// DefaultWeights are the reference deployment values.
var DefaultWeights = Weights{
	Lexical:  0.6,
	Semantic: 0.4,
	Hybrid:   0.35,
	Recency:  0.65,
}

// ScoreBundle carries every signal computed for one (query, article) pair.
type ScoreBundle struct {
	Lexical  float64
	Semantic float64
	Hybrid   float64 // elimination gate
	Recency  float64
	Combined float64 // ordering key
}

// Candidate is a stored article row as the ranking query returns it. The
// lexical score comes from the store's full-text index capability.
type Candidate struct {
	ID        int64
	Title     string
	Link      string
	Published time.Time
	Image     string
	Source    string
	Topic     string
	Embedding []float64
	Lexical   float64
}

// Scored pairs a candidate with its score bundle.
type Scored struct {
	Candidate
	Scores ScoreBundle
}

// Scorer computes ScoreBundles under a fixed weight configuration.
type Scorer struct {
	weights         Weights
	decayWindowDays float64
	now             func() time.Time
}

func NewScorer(weights Weights, decayWindowDays float64) *Scorer {
	return &Scorer{
		weights:         weights,
		decayWindowDays: decayWindowDays,
		now:             time.Now,
	}
}

// Score computes the full bundle for one candidate against a query embedding.
func (s *Scorer) Score(queryEmbedding []float64, c Candidate) ScoreBundle {
	lexical := c.Lexical
	if lexical < 0 {
		lexical = 0
	}

	semantic := embed.CosineSimilarity(queryEmbedding, c.Embedding)
	hybrid := lexical*s.weights.Lexical + semantic*s.weights.Semantic
	recency := RecencyScore(c.Published, s.now(), s.decayWindowDays)
	combined := hybrid*s.weights.Hybrid + recency*s.weights.Recency

	return ScoreBundle{
		Lexical:  lexical,
		Semantic: semantic,
		Hybrid:   hybrid,
		Recency:  recency,
		Combined: combined,
	}
}

// Rank scores all candidates, eliminates those under minHybrid, orders the
// rest by combined score descending and applies offset pagination. A candidate
// below the gate never appears, not even at the tail of a long result list.
// An empty candidate set yields an empty result.
func (s *Scorer) Rank(queryEmbedding []float64, candidates []Candidate, minHybrid float64, skip, limit int) []Scored {
	scored := make([]Scored, 0, len(candidates))
	for _, c := range candidates {
		bundle := s.Score(queryEmbedding, c)
		if bundle.Hybrid < minHybrid {
			continue
		}
		scored = append(scored, Scored{Candidate: c, Scores: bundle})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Scores.Combined > scored[j].Scores.Combined
	})

	return Paginate(scored, skip, limit)
}

// RecencyScore decays exponentially with age: 1.0 at publish time, never
// negative. decayWindowDays controls how fast it falls toward 0.
func RecencyScore(published, now time.Time, decayWindowDays float64) float64 {
	days := now.Sub(published).Hours() / 24.0
	return math.Max(0, math.Exp(-days/decayWindowDays))
}

// Paginate applies standard skip/limit offset pagination. No stability
// guarantee is made across concurrent writes.
func Paginate[T any](items []T, skip, limit int) []T {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return []T{}
	}
	items = items[skip:]
	if limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
