package embed

import "math"

// CosineSimilarity returns the cosine of the angle between a and b; 1 means
// identical direction, 0 orthogonal. Mismatched or zero-norm vectors score 0.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance is 1 - CosineSimilarity: lower means closer. Search scoring
// uses similarity, recommendation ranking uses distance; the two conventions
// are never mixed in one formula.
func CosineDistance(a, b []float64) float64 {
	return 1 - CosineSimilarity(a, b)
}
