// Package recommend builds personalized rankings from a user's interaction
// history.
//
// Unlike package rank this works in cosine *distance* (lower is better) and
// sorts ascending; the two conventions stay behind separate functions so a
// sign flip cannot creep in.
package recommend

import (
	"math"
	"sort"
	"time"

	"newspulse/internal/embed"
	"newspulse/internal/rank"
)

// HistoryEntry is one of the user's recent article interactions, joined with
// the article's embedding.
type HistoryEntry struct {
	ArticleID int64
	Embedding []float64
	WatchedAt time.Time
}

// Ranked is a candidate with its recommendation score; lower is better.
type Ranked struct {
	rank.Candidate
	Score float64
}

// ProfileVector collapses the history window into a single time-weighted
// embedding. Each entry's timestamp is normalized to [0,1] recency within the
// window, scaled by decayStrength and pushed through a softmax, so recent
// interactions dominate while older ones keep nonzero mass. Returns nil for
// an empty window.
func ProfileVector(history []HistoryEntry, decayStrength float64) []float64 {
	entries := make([]HistoryEntry, 0, len(history))
	for _, h := range history {
		if len(h.Embedding) > 0 {
			entries = append(entries, h)
		}
	}
	if len(entries) == 0 {
		return nil
	}

	oldest := entries[0].WatchedAt
	newest := entries[0].WatchedAt
	for _, h := range entries[1:] {
		if h.WatchedAt.Before(oldest) {
			oldest = h.WatchedAt
		}
		if h.WatchedAt.After(newest) {
			newest = h.WatchedAt
		}
	}
	// Avoid division by zero when all views share a timestamp
	timeRange := math.Max(newest.Sub(oldest).Seconds(), 1)

	weights := make([]float64, len(entries))
	var sum float64
	for i, h := range entries {
		recency := h.WatchedAt.Sub(oldest).Seconds() / timeRange
		weights[i] = math.Exp(recency * decayStrength)
		sum += weights[i]
	}

	profile := make([]float64, len(entries[0].Embedding))
	for i, h := range entries {
		w := weights[i] / sum
		for d, v := range h.Embedding {
			if d < len(profile) {
				profile[d] += w * v
			}
		}
	}
	return profile
}

// RankByProfile orders candidates by blended embedding distance and age:
//
//	distance*(1-recencyFactor) + ageDays*recencyFactor
//
// ascending, then paginates. Candidates without embeddings are skipped.
func RankByProfile(profile []float64, candidates []rank.Candidate, recencyFactor float64, now time.Time, skip, limit int) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if len(c.Embedding) == 0 {
			continue
		}
		distance := embed.CosineDistance(profile, c.Embedding)
		ageDays := now.Sub(c.Published).Hours() / 24.0
		score := distance*(1-recencyFactor) + ageDays*recencyFactor
		ranked = append(ranked, Ranked{Candidate: c, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score < ranked[j].Score
	})

	return rank.Paginate(ranked, skip, limit)
}
