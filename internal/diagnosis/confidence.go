package diagnosis

import "math"

// Confidence adjusts a raw match score by absolute evidence volume:
// five or more matched symptoms reward the score (capped at 1.0), three
// or four leave it unchanged, fewer than three penalize it. This is a
// fixed heuristic, not a probability calibration. Invalid input degrades
// to 0.0 rather than propagating.
func Confidence(m MatchResult) float64 {
	score := m.Score
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0.0
	}
	if score > 1 {
		score = 1
	}

	switch {
	case m.MatchCount >= 5:
		return math.Min(score*1.2, 1.0)
	case m.MatchCount >= 3:
		return score
	default:
		return score * 0.8
	}
}
