// Package dedupe removes near-identical and identical candidates from an
// ingestion batch before they reach storage.
package dedupe

import (
	"log/slog"

	"newspulse/internal/embed"
	"newspulse/internal/feed"
	"newspulse/internal/metrics"
)

// FilterNearDuplicates drops batch items whose title embeddings are closer
// than threshold to an earlier item. For every pair (i, j) with i < j above
// the threshold the later item j is removed; the first-seen article always
// wins, so the result depends on batch order. Callers must pass the batch in
// its stable normalization order. Items without embeddings are never compared
// or removed.
func FilterNearDuplicates(articles []feed.Article, threshold float64) []feed.Article {
	if len(articles) < 2 {
		return articles
	}

	toRemove := make(map[int]bool)
	for i := 0; i < len(articles); i++ {
		if len(articles[i].Embedding) == 0 {
			continue
		}
		for j := i + 1; j < len(articles); j++ {
			if len(articles[j].Embedding) == 0 {
				continue
			}
			similarity := embed.CosineSimilarity(articles[i].Embedding, articles[j].Embedding)
			if similarity > threshold {
				toRemove[j] = true
			}
		}
	}

	if len(toRemove) == 0 {
		return articles
	}

	result := make([]feed.Article, 0, len(articles)-len(toRemove))
	for idx, a := range articles {
		if !toRemove[idx] {
			result = append(result, a)
		}
	}

	slog.Debug("near-duplicates removed", "count", len(toRemove))
	metrics.Global.AddNearDuplicatesRemoved(len(toRemove))
	return result
}

// CollapseIdentity resolves same-link and same (title, source) collisions
// within one batch, keeping the candidate with the later publish time. Output
// keeps each winner at the position its key was first seen.
func CollapseIdentity(articles []feed.Article) []feed.Article {
	byLink := collapseBy(articles, func(a feed.Article) string {
		return a.Link
	})
	return collapseBy(byLink, func(a feed.Article) string {
		return a.Title + "\x00" + a.Source
	})
}

func collapseBy(articles []feed.Article, key func(feed.Article) string) []feed.Article {
	position := make(map[string]int, len(articles))
	var result []feed.Article

	for _, a := range articles {
		k := key(a)
		idx, seen := position[k]
		if !seen {
			position[k] = len(result)
			result = append(result, a)
			continue
		}
		if a.Published.After(result[idx].Published) {
			result[idx] = a
		}
	}
	return result
}
