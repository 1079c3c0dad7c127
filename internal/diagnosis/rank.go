package diagnosis

import (
	"sort"
	"strings"

	"ai-doctor/internal/knowledge"
)

// MatchResult scores one disease against the user's symptom set. It is
// ephemeral, produced per ranking call and never persisted.
type MatchResult struct {
	Disease         knowledge.Disease `json:"disease"`
	Score           float64           `json:"score"`
	MatchCount      int               `json:"match_count"`
	MatchedSymptoms []string          `json:"matched_symptoms"`
}

// Jaccard computes intersection over union of two symptom name sets,
// case-folded. Two empty sets score 0.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	setA := foldSet(a)
	setB := foldSet(b)

	intersection := 0
	for name := range setA {
		if setB[name] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// RankDiseases scores every disease against the user's symptoms and
// returns the top-k matches ordered by score descending. Diseases with no
// overlapping symptom are excluded. The sort is stable, so equal scores
// keep knowledge-base order: the first-loaded disease wins ties.
func RankDiseases(userSymptoms []string, diseases []knowledge.Disease, topK int) []MatchResult {
	if len(userSymptoms) == 0 {
		return nil
	}

	var results []MatchResult
	for _, d := range diseases {
		score := Jaccard(userSymptoms, d.Symptoms)
		if score <= 0 {
			continue
		}

		diseaseSet := foldSet(d.Symptoms)
		var matched []string
		seen := make(map[string]bool)
		for _, s := range userSymptoms {
			folded := strings.ToLower(s)
			if diseaseSet[folded] && !seen[folded] {
				seen[folded] = true
				matched = append(matched, s)
			}
		}

		results = append(results, MatchResult{
			Disease:         d,
			Score:           score,
			MatchCount:      len(matched),
			MatchedSymptoms: matched,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

func foldSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
