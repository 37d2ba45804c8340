package retrieval

// Confidence blend: the top score carries most of the signal, the drop-off
// between rank 1 and rank 2 carries the rest. A large leading score with a
// steep gap reads as a confident hit; a flat low-scoring tail reads as noise.
const (
	topScoreWeight = 0.7
	gapWeight      = 0.3
)

// ComputeConfidence derives a [0,1] trust scalar for a ranked result set.
// Empty results always yield exactly 0; non-empty results always yield > 0.
func ComputeConfidence(candidates []Candidate) float64 {
	if len(candidates) == 0 {
		return 0
	}

	top := candidates[0].FusedScore

	// Single hit: nothing to measure a gap against, the top score stands alone
	if len(candidates) == 1 {
		return clamp(top)
	}

	gap := top - candidates[1].FusedScore
	if gap < 0 {
		gap = 0
	}

	confidence := topScoreWeight*top + gapWeight*gap
	return clamp(confidence)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	// Floor guards the non-empty => positive invariant even when every
	// fused score is vanishingly small
	if v < 1e-6 {
		return 1e-6
	}
	return v
}
