package recommend

import (
	"math"
	"testing"
	"time"

	"newspulse/internal/embed"
	"newspulse/internal/rank"
)

func TestProfileVectorEmptyHistory(t *testing.T) {
	if got := ProfileVector(nil, 1.0); got != nil {
		t.Fatalf("empty history must yield nil profile, got %v", got)
	}
	entries := []HistoryEntry{{ArticleID: 1, Embedding: nil, WatchedAt: time.Now()}}
	if got := ProfileVector(entries, 1.0); got != nil {
		t.Fatalf("history without embeddings must yield nil profile, got %v", got)
	}
}

func TestProfileVectorFavorsRecentInteractions(t *testing.T) {
	now := time.Now()
	a := []float64{1, 0}
	b := []float64{0, 1}

	history := []HistoryEntry{
		{ArticleID: 1, Embedding: a, WatchedAt: now},                       // most recent
		{ArticleID: 2, Embedding: b, WatchedAt: now.Add(-48 * time.Hour)},
	}

	for _, strength := range []float64{0.1, 1.0, 5.0} {
		profile := ProfileVector(history, strength)
		simA := embed.CosineSimilarity(profile, a)
		simB := embed.CosineSimilarity(profile, b)
		if simA <= simB {
			t.Errorf("decayStrength %v: profile must be strictly closer to the recent embedding (a=%v b=%v)",
				strength, simA, simB)
		}
		if simB <= 0 {
			t.Errorf("decayStrength %v: older interactions must keep nonzero mass, got %v", strength, simB)
		}
	}
}

func TestProfileVectorEqualTimestamps(t *testing.T) {
	now := time.Now()
	history := []HistoryEntry{
		{ArticleID: 1, Embedding: []float64{1, 0}, WatchedAt: now},
		{ArticleID: 2, Embedding: []float64{0, 1}, WatchedAt: now},
	}

	profile := ProfileVector(history, 1.0)
	if math.Abs(profile[0]-profile[1]) > 1e-9 {
		t.Errorf("same timestamps must weight equally, got %v", profile)
	}
}

func TestRankByProfileAscending(t *testing.T) {
	now := time.Now()
	profile := []float64{1, 0}

	cands := []rank.Candidate{
		{ID: 1, Published: now, Embedding: []float64{0, 1}},  // distant
		{ID: 2, Published: now, Embedding: []float64{1, 0}},  // identical
		{ID: 3, Published: now, Embedding: []float64{1, 1}},  // in between
	}

	got := RankByProfile(profile, cands, 0.3, now, 0, 10)
	if len(got) != 3 {
		t.Fatalf("got %d results, want 3", len(got))
	}
	if got[0].ID != 2 || got[2].ID != 1 {
		t.Errorf("order %d,%d,%d — lower blended distance must come first", got[0].ID, got[1].ID, got[2].ID)
	}
	if !(got[0].Score <= got[1].Score && got[1].Score <= got[2].Score) {
		t.Errorf("scores not ascending: %v %v %v", got[0].Score, got[1].Score, got[2].Score)
	}
}

func TestRankByProfileRecencyFactorPullsFreshContent(t *testing.T) {
	now := time.Now()
	profile := []float64{1, 0}

	stale := rank.Candidate{ID: 1, Published: now.AddDate(0, 0, -40), Embedding: []float64{1, 0}}
	fresh := rank.Candidate{ID: 2, Published: now, Embedding: []float64{0.8, 0.6}}

	got := RankByProfile(profile, []rank.Candidate{stale, fresh}, 0.3, now, 0, 10)
	if got[0].ID != 2 {
		t.Errorf("a 40-day age penalty must outweigh a modest similarity edge, got ID %d first", got[0].ID)
	}
}

func TestRankByProfileSkipsUnembedded(t *testing.T) {
	now := time.Now()
	cands := []rank.Candidate{
		{ID: 1, Published: now, Embedding: nil},
		{ID: 2, Published: now, Embedding: []float64{1, 0}},
	}

	got := RankByProfile([]float64{1, 0}, cands, 0.3, now, 0, 10)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("candidates without embeddings must be skipped: %+v", got)
	}
}

func TestRankByProfilePagination(t *testing.T) {
	now := time.Now()
	profile := []float64{1, 0}
	var cands []rank.Candidate
	for i := 0; i < 5; i++ {
		cands = append(cands, rank.Candidate{ID: int64(i + 1), Published: now, Embedding: []float64{1, float64(i) * 0.2}})
	}

	page := RankByProfile(profile, cands, 0, now, 2, 2)
	if len(page) != 2 {
		t.Fatalf("got %d, want page of 2", len(page))
	}
	if page[0].ID != 3 {
		t.Errorf("offset pagination applied after ordering; got ID %d first", page[0].ID)
	}
}
