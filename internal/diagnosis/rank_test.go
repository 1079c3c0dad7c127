package diagnosis

import (
	"math"
	"reflect"
	"testing"

	"ai-doctor/internal/knowledge"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestJaccardProperties covers symmetry, identity and the empty-set case.
func TestJaccardProperties(t *testing.T) {
	a := []string{"đau đầu", "sốt"}
	b := []string{"sốt", "ho", "mệt mỏi"}

	if got, want := Jaccard(a, b), Jaccard(b, a); !almostEqual(got, want) {
		t.Errorf("Jaccard not symmetric: %v vs %v", got, want)
	}
	if got := Jaccard(a, a); !almostEqual(got, 1.0) {
		t.Errorf("Jaccard(A,A) should be 1 for non-empty A, got %v", got)
	}
	if got := Jaccard(nil, nil); got != 0.0 {
		t.Errorf("Jaccard(∅,∅) should be 0, got %v", got)
	}
	if got := Jaccard(a, nil); got != 0.0 {
		t.Errorf("Jaccard with one empty set should be 0, got %v", got)
	}
}

// TestJaccardCaseFolding verifies names are compared case-insensitively.
func TestJaccardCaseFolding(t *testing.T) {
	if got := Jaccard([]string{"Sốt"}, []string{"sốt"}); !almostEqual(got, 1.0) {
		t.Errorf("Expected 1.0 for case-folded identical sets, got %v", got)
	}
}

// TestRankDiseasesScenario runs the reference two-disease scenario:
// {đau đầu, sốt} scores 2/3 against Cảm lạnh and 2/4 against Cúm.
func TestRankDiseasesScenario(t *testing.T) {
	diseases := []knowledge.Disease{
		{ID: "D001", Name: "Cảm lạnh", Symptoms: []string{"đau đầu", "sốt", "ho"}},
		{ID: "D002", Name: "Cúm", Symptoms: []string{"đau đầu", "sốt", "mệt mỏi", "đau cơ"}},
	}

	results := RankDiseases([]string{"đau đầu", "sốt"}, diseases, 5)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Disease.Name != "Cảm lạnh" {
		t.Errorf("Expected Cảm lạnh first, got %s", results[0].Disease.Name)
	}
	if !almostEqual(results[0].Score, 2.0/3.0) {
		t.Errorf("Expected score 2/3, got %v", results[0].Score)
	}
	if !almostEqual(results[1].Score, 0.5) {
		t.Errorf("Expected score 0.5, got %v", results[1].Score)
	}
	if results[0].MatchCount != 2 {
		t.Errorf("Expected match count 2, got %d", results[0].MatchCount)
	}
	want := []string{"đau đầu", "sốt"}
	if !reflect.DeepEqual(results[0].MatchedSymptoms, want) {
		t.Errorf("Expected matched symptoms %v, got %v", want, results[0].MatchedSymptoms)
	}
}

// TestRankDiseasesTieOrder verifies equal scores keep knowledge-base order.
func TestRankDiseasesTieOrder(t *testing.T) {
	diseases := []knowledge.Disease{
		{ID: "D001", Name: "Bệnh A", Symptoms: []string{"sốt", "ho"}},
		{ID: "D002", Name: "Bệnh B", Symptoms: []string{"sốt", "đau cơ"}},
	}

	results := RankDiseases([]string{"sốt"}, diseases, 5)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !almostEqual(results[0].Score, results[1].Score) {
		t.Fatalf("Expected a tie, got %v vs %v", results[0].Score, results[1].Score)
	}
	if results[0].Disease.ID != "D001" {
		t.Errorf("First-loaded disease should win ties, got %s", results[0].Disease.ID)
	}
}

// TestRankDiseasesExcludesZeroOverlap verifies score > 0 is required to appear.
func TestRankDiseasesExcludesZeroOverlap(t *testing.T) {
	diseases := []knowledge.Disease{
		{ID: "D001", Name: "Bệnh A", Symptoms: []string{"ho"}},
		{ID: "D002", Name: "Bệnh B", Symptoms: []string{"sốt"}},
	}

	results := RankDiseases([]string{"sốt"}, diseases, 5)
	if len(results) != 1 || results[0].Disease.ID != "D002" {
		t.Errorf("Expected only D002, got %+v", results)
	}
}

// TestRankDiseasesTopK verifies truncation.
func TestRankDiseasesTopK(t *testing.T) {
	diseases := []knowledge.Disease{
		{ID: "D001", Name: "A", Symptoms: []string{"sốt"}},
		{ID: "D002", Name: "B", Symptoms: []string{"sốt", "ho"}},
		{ID: "D003", Name: "C", Symptoms: []string{"sốt", "ho", "đau cơ"}},
	}

	results := RankDiseases([]string{"sốt"}, diseases, 2)
	if len(results) != 2 {
		t.Errorf("Expected 2 results after truncation, got %d", len(results))
	}
}

// TestRankDiseasesEmptyInput verifies an empty symptom set is not an error.
func TestRankDiseasesEmptyInput(t *testing.T) {
	diseases := []knowledge.Disease{{ID: "D001", Name: "A", Symptoms: []string{"sốt"}}}
	if results := RankDiseases(nil, diseases, 5); len(results) != 0 {
		t.Errorf("Expected empty result for empty input, got %+v", results)
	}
}

// TestRankDiseasesIdempotent verifies ranking the same set twice gives identical output.
func TestRankDiseasesIdempotent(t *testing.T) {
	diseases := []knowledge.Disease{
		{ID: "D001", Name: "A", Symptoms: []string{"sốt", "ho"}},
		{ID: "D002", Name: "B", Symptoms: []string{"sốt", "đau cơ", "mệt mỏi"}},
	}
	symptoms := []string{"sốt", "ho", "mệt mỏi"}

	first := RankDiseases(symptoms, diseases, 5)
	second := RankDiseases(symptoms, diseases, 5)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Ranking not idempotent: %+v vs %+v", first, second)
	}
}
