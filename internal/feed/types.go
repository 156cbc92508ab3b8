// Package feed fetches syndication payloads and normalizes them into
// candidate articles.
package feed

import "time"

// Article is one normalized candidate produced during a fetch cycle. It lives
// in memory only; persistence happens at the storage boundary.
type Article struct {
	Title     string
	Link      string
	Published time.Time
	Image     string // empty when the feed entry carries no usable image
	Source    string
	Topic     string
	Embedding []float64
}

// WithEmbedding returns a copy of the article with the vector attached.
// Candidates are never mutated in place once embedded.
func (a Article) WithEmbedding(vec []float64) Article {
	a.Embedding = vec
	return a
}
