package rank

import (
	"math"
	"testing"
	"time"
)

func fixedScorer(now time.Time) *Scorer {
	s := NewScorer(DefaultWeights, 30)
	s.now = func() time.Time { return now }
	return s
}

func TestScoreBundleFormulas(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s := fixedScorer(now)

	c := Candidate{
		Published: now, // recency exactly 1.0
		Embedding: []float64{1, 0},
		Lexical:   0.5,
	}

	got := s.Score([]float64{1, 0}, c)

	if got.Semantic != 1 {
		t.Errorf("semantic = %v, want 1 for identical embeddings", got.Semantic)
	}
	wantHybrid := 0.5*0.6 + 1*0.4
	if math.Abs(got.Hybrid-wantHybrid) > 1e-9 {
		t.Errorf("hybrid = %v, want %v", got.Hybrid, wantHybrid)
	}
	if math.Abs(got.Recency-1) > 1e-9 {
		t.Errorf("recency = %v, want 1 at publish time", got.Recency)
	}
	wantCombined := wantHybrid*0.35 + 1*0.65
	if math.Abs(got.Combined-wantCombined) > 1e-9 {
		t.Errorf("combined = %v, want %v", got.Combined, wantCombined)
	}
}

func TestScoreClampsNegativeLexical(t *testing.T) {
	s := fixedScorer(time.Now())
	got := s.Score([]float64{1, 0}, Candidate{Published: time.Now(), Embedding: []float64{0, 1}, Lexical: -0.2})
	if got.Lexical != 0 {
		t.Errorf("lexical = %v, want clamped to 0", got.Lexical)
	}
}

func TestRankHybridGateMonotonicity(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s := fixedScorer(now)
	query := []float64{1, 0}

	c := Candidate{ID: 1, Published: now, Embedding: []float64{1, 0}, Lexical: 0.5}
	// hybrid = 0.5*0.6 + 1*0.4 = 0.7

	if got := s.Rank(query, []Candidate{c}, 0.69, 0, 10); len(got) != 1 {
		t.Fatalf("candidate above the gate must appear, got %d results", len(got))
	}
	if got := s.Rank(query, []Candidate{c}, 0.71, 0, 10); len(got) != 0 {
		t.Fatalf("raising minScore past the hybrid score must remove it entirely, got %d results", len(got))
	}
}

func TestRankSemanticOnlyAdmission(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s := fixedScorer(now)

	// No lexical match at all, but semantically close: hybrid = 0.4 > 0.18.
	c := Candidate{ID: 1, Published: now, Embedding: []float64{1, 0}, Lexical: 0}

	if got := s.Rank([]float64{1, 0}, []Candidate{c}, 0.18, 0, 10); len(got) != 1 {
		t.Fatalf("pure-keyword match is not the only admission path; got %d results", len(got))
	}
}

func TestRankOrdersByCombinedDescending(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	s := fixedScorer(now)
	query := []float64{1, 0}

	older := Candidate{ID: 1, Published: now.AddDate(0, 0, -20), Embedding: []float64{1, 0}, Lexical: 0.5}
	fresher := Candidate{ID: 2, Published: now, Embedding: []float64{1, 0}, Lexical: 0.5}

	got := s.Rank(query, []Candidate{older, fresher}, 0, 0, 10)
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].ID != 2 {
		t.Errorf("same hybrid, fresher article must rank first; got ID %d", got[0].ID)
	}
	if got[0].Scores.Combined <= got[1].Scores.Combined {
		t.Errorf("results not in descending combined order: %v <= %v", got[0].Scores.Combined, got[1].Scores.Combined)
	}
}

func TestRankEmptyCandidateSet(t *testing.T) {
	s := fixedScorer(time.Now())
	if got := s.Rank([]float64{1, 0}, nil, 0.18, 0, 10); len(got) != 0 {
		t.Fatalf("empty candidate set must yield empty result, got %d", len(got))
	}
}

func TestRecencyScoreDecay(t *testing.T) {
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	if got := RecencyScore(now, now, 30); math.Abs(got-1) > 1e-9 {
		t.Errorf("at publish time recency = %v, want 1", got)
	}

	at30 := RecencyScore(now.AddDate(0, 0, -30), now, 30)
	if math.Abs(at30-math.Exp(-1)) > 1e-9 {
		t.Errorf("one decay window old: %v, want e^-1", at30)
	}

	ancient := RecencyScore(now.AddDate(-50, 0, 0), now, 30)
	if ancient < 0 {
		t.Errorf("recency must never go negative, got %v", ancient)
	}
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	if got := Paginate(items, 0, 2); len(got) != 2 || got[0] != 1 {
		t.Errorf("skip 0 limit 2: %v", got)
	}
	if got := Paginate(items, 3, 10); len(got) != 2 || got[0] != 4 {
		t.Errorf("skip 3: %v", got)
	}
	if got := Paginate(items, 10, 2); len(got) != 0 {
		t.Errorf("skip past end must be empty: %v", got)
	}
	if got := Paginate(items, -1, -1); len(got) != 5 {
		t.Errorf("negative skip/limit treated as unbounded: %v", got)
	}
}
