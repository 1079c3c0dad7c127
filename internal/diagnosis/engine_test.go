package diagnosis

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/sirupsen/logrus"

	"ai-doctor/internal/knowledge"
)

const testKB = `{
  "diseases": [
    {"id": "D001", "name": "Cảm lạnh", "symptoms": ["đau đầu", "sốt", "ho"]},
    {"id": "D002", "name": "Cúm", "symptoms": ["đau đầu", "sốt", "mệt mỏi", "đau cơ"]}
  ],
  "symptoms": [
    {"id": "S001", "name": "đau đầu", "category": "Thần kinh"},
    {"id": "S002", "name": "sốt", "category": "Toàn thân"},
    {"id": "S003", "name": "ho", "category": "Hô hấp"},
    {"id": "S004", "name": "mệt mỏi", "category": "Toàn thân"},
    {"id": "S005", "name": "đau cơ", "category": "Toàn thân"}
  ]
}`

func newTestEngine(t *testing.T, minSymptoms int, threshold float64) *Engine {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	path := filepath.Join(t.TempDir(), "kb.json")
	if err := os.WriteFile(path, []byte(testKB), 0o644); err != nil {
		t.Fatalf("write kb: %v", err)
	}
	store, err := knowledge.Load(path, log)
	if err != nil {
		t.Fatalf("load kb: %v", err)
	}
	return NewEngine(store, 5, threshold, minSymptoms, log)
}

// TestAnalyzeAccumulates verifies new mentions merge into the accumulated set.
func TestAnalyzeAccumulates(t *testing.T) {
	engine := newTestEngine(t, 2, 0.6)

	analysis := engine.Analyze("Tôi bị ho", []string{"sốt"})
	want := []string{"sốt", "ho"}
	if !reflect.DeepEqual(analysis.Symptoms, want) {
		t.Errorf("Expected accumulated %v, got %v", want, analysis.Symptoms)
	}
	if !reflect.DeepEqual(analysis.NewSymptoms, []string{"ho"}) {
		t.Errorf("Expected new symptoms [ho], got %v", analysis.NewSymptoms)
	}
}

// TestAnalyzeSufficiencyGate verifies the gate needs enough symptoms, a
// non-empty ranking and confident top score.
func TestAnalyzeSufficiencyGate(t *testing.T) {
	engine := newTestEngine(t, 2, 0.6)

	// One symptom: below MIN_SYMPTOMS regardless of confidence.
	analysis := engine.Analyze("Tôi bị sốt", nil)
	if analysis.HasEnoughInfo {
		t.Error("Gate should be false with a single symptom")
	}

	// Three of three Cảm lạnh symptoms: jaccard 1.0, match count 3.
	analysis = engine.Analyze("Tôi bị đau đầu, sốt và ho", nil)
	if !analysis.HasEnoughInfo {
		t.Errorf("Gate should open: confidence %v, matches %d", analysis.TopConfidence, len(analysis.Matches))
	}
	if analysis.Matches[0].Disease.Name != "Cảm lạnh" {
		t.Errorf("Expected Cảm lạnh on top, got %s", analysis.Matches[0].Disease.Name)
	}
}

// TestAnalyzeThresholdBlocks verifies a low top confidence keeps the gate shut.
func TestAnalyzeThresholdBlocks(t *testing.T) {
	engine := newTestEngine(t, 2, 0.99)
	analysis := engine.Analyze("Tôi bị đau đầu và sốt", nil)
	if analysis.HasEnoughInfo {
		t.Errorf("Gate should stay shut below threshold, confidence %v", analysis.TopConfidence)
	}
}

// TestAnalyzeEmergencyShortCircuits verifies a danger keyword in the merged
// set stops ranking entirely.
func TestAnalyzeEmergencyShortCircuits(t *testing.T) {
	engine := newTestEngine(t, 2, 0.6)
	analysis := engine.Analyze("Tôi bị sốt", []string{"co giật"})
	if analysis.Emergency == nil {
		t.Fatal("Expected emergency from accumulated set")
	}
	if len(analysis.Matches) != 0 {
		t.Error("No ranking should happen on an emergency turn")
	}
	if analysis.HasEnoughInfo {
		t.Error("Gate must not open on an emergency turn")
	}
}
