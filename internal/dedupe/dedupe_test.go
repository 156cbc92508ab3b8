package dedupe

import (
	"testing"
	"time"

	"newspulse/internal/feed"
)

func article(title, link, source string, published time.Time, embedding []float64) feed.Article {
	return feed.Article{
		Title:     title,
		Link:      link,
		Source:    source,
		Topic:     "top",
		Published: published,
		Embedding: embedding,
	}
}

func TestFilterNearDuplicatesKeepsFirstSeen(t *testing.T) {
	now := time.Now()
	// Items 0 and 2 are nearly parallel (similarity ~0.995); item 1 is
	// orthogonal to both.
	batch := []feed.Article{
		article("story A", "https://a.example.com/1", "A", now, []float64{1, 0}),
		article("unrelated", "https://b.example.com/2", "B", now, []float64{0, 1}),
		article("story A again", "https://c.example.com/3", "C", now, []float64{0.99, 0.1}),
	}

	got := FilterNearDuplicates(batch, 0.9)
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Title != "story A" || got[1].Title != "unrelated" {
		t.Errorf("wrong survivors: %q, %q — earlier scan-order item must win", got[0].Title, got[1].Title)
	}
}

func TestFilterNearDuplicatesSkipsUnembedded(t *testing.T) {
	now := time.Now()
	batch := []feed.Article{
		article("a", "https://a.example.com/1", "A", now, nil),
		article("b", "https://b.example.com/2", "B", now, nil),
	}

	got := FilterNearDuplicates(batch, 0.9)
	if len(got) != 2 {
		t.Fatalf("unembedded items must never be compared or dropped, got %d", len(got))
	}
}

func TestFilterNearDuplicatesBelowThreshold(t *testing.T) {
	now := time.Now()
	batch := []feed.Article{
		article("a", "https://a.example.com/1", "A", now, []float64{1, 0}),
		article("b", "https://b.example.com/2", "B", now, []float64{0.5, 0.9}),
	}

	if got := FilterNearDuplicates(batch, 0.9); len(got) != 2 {
		t.Fatalf("similarity under threshold must keep both, got %d", len(got))
	}
}

func TestCollapseIdentityByLinkKeepsLater(t *testing.T) {
	older := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	newer := older.Add(2 * time.Hour)

	batch := []feed.Article{
		article("first version", "https://a.example.com/story", "A", older, nil),
		article("updated version", "https://a.example.com/story", "A", newer, nil),
	}

	got := CollapseIdentity(batch)
	if len(got) != 1 {
		t.Fatalf("got %d articles, want 1", len(got))
	}
	if got[0].Title != "updated version" {
		t.Errorf("kept %q, want the later-published candidate", got[0].Title)
	}
}

func TestCollapseIdentityByTitleSource(t *testing.T) {
	older := time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	batch := []feed.Article{
		article("same headline", "https://a.example.com/1", "A", newer, nil),
		article("same headline", "https://a.example.com/2", "A", older, nil),
		article("same headline", "https://b.example.com/3", "B", older, nil), // different source survives
	}

	got := CollapseIdentity(batch)
	if len(got) != 2 {
		t.Fatalf("got %d articles, want 2", len(got))
	}
	if got[0].Link != "https://a.example.com/1" {
		t.Errorf("kept %q for source A, want the newer candidate", got[0].Link)
	}
}

func TestCollapseIdentityPreservesOrder(t *testing.T) {
	now := time.Now()
	batch := []feed.Article{
		article("x", "https://a.example.com/1", "A", now, nil),
		article("y", "https://b.example.com/2", "B", now, nil),
		article("z", "https://c.example.com/3", "C", now, nil),
	}

	got := CollapseIdentity(batch)
	if len(got) != 3 {
		t.Fatalf("nothing should collapse, got %d", len(got))
	}
	for i, want := range []string{"x", "y", "z"} {
		if got[i].Title != want {
			t.Errorf("position %d: %q, want %q", i, got[i].Title, want)
		}
	}
}
