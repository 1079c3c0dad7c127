package diagnosis

import (
	"strings"

	"github.com/sirupsen/logrus"

	"ai-doctor/internal/knowledge"
)

// Engine composes extraction, emergency detection, ranking and confidence
// scoring over the knowledge base. Each stage degrades to an empty or
// zero result on internal failure; nothing here aborts a turn.
type Engine struct {
	store               *knowledge.Store
	topK                int
	confidenceThreshold float64
	minSymptoms         int
	log                 *logrus.Logger
}

// Analysis is the per-turn outcome of the matching pipeline.
type Analysis struct {
	Symptoms      []string      // accumulated set after merging this turn
	NewSymptoms   []string      // symptoms first mentioned this turn
	Matches       []MatchResult // ranked candidates, best first
	TopConfidence float64
	HasEnoughInfo bool
	Emergency     *Escalation
}

// NewEngine builds an engine over the knowledge store with the given
// diagnosis thresholds.
func NewEngine(store *knowledge.Store, topK int, confidenceThreshold float64, minSymptoms int, log *logrus.Logger) *Engine {
	return &Engine{
		store:               store,
		topK:                topK,
		confidenceThreshold: confidenceThreshold,
		minSymptoms:         minSymptoms,
		log:                 log,
	}
}

// Analyze runs one matching pass: extract symptom mentions from input,
// merge them into the accumulated set, check the merged set for danger
// keywords, rank diseases and score the top match, then evaluate the
// sufficiency gate.
func (e *Engine) Analyze(input string, accumulated []string) Analysis {
	newSymptoms := ExtractSymptoms(input, e.store.SymptomNames())
	all := mergeSymptoms(accumulated, newSymptoms)

	e.log.WithFields(logrus.Fields{
		"new_symptoms":   len(newSymptoms),
		"total_symptoms": len(all),
	}).Info("symptoms extracted")

	analysis := Analysis{
		Symptoms:    all,
		NewSymptoms: newSymptoms,
	}

	if esc := DetectEmergencyInSymptoms(all); esc != nil {
		e.log.WithField("keyword", esc.Keyword).Warn("emergency symptoms detected")
		analysis.Emergency = esc
		return analysis
	}

	analysis.Matches = RankDiseases(all, e.store.Diseases(), e.topK)
	if len(analysis.Matches) > 0 {
		analysis.TopConfidence = Confidence(analysis.Matches[0])
	}

	analysis.HasEnoughInfo = len(all) >= e.minSymptoms &&
		len(analysis.Matches) > 0 &&
		analysis.TopConfidence >= e.confidenceThreshold

	e.log.WithFields(logrus.Fields{
		"matches":         len(analysis.Matches),
		"top_confidence":  analysis.TopConfidence,
		"has_enough_info": analysis.HasEnoughInfo,
	}).Info("diseases ranked")

	return analysis
}

// mergeSymptoms unions two symptom lists, deduplicating case-folded
// names and preserving first-seen order.
func mergeSymptoms(existing, found []string) []string {
	seen := make(map[string]bool, len(existing)+len(found))
	var out []string
	for _, list := range [][]string{existing, found} {
		for _, s := range list {
			folded := strings.ToLower(s)
			if !seen[folded] {
				seen[folded] = true
				out = append(out, s)
			}
		}
	}
	return out
}
