package domain

import "math"

// CosineSimilarity returns the cosine of the angle between a and b.
// Higher means more similar; the range is [-1, 1] for well-formed input.
//
// Missing vectors, unequal lengths, and zero-norm vectors all return 0:
// malformed embeddings degrade ranking, they never fail it. Pure and
// deterministic, safe to call inside a sort comparator.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
