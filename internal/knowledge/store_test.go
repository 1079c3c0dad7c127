package knowledge

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

const validKB = `{
  "diseases": [
    {"id": "D001", "name": "Cảm lạnh", "description": "nhiễm virus", "severity": "mild",
     "symptoms": ["đau đầu", "sốt", "ho"], "treatment": "nghỉ ngơi"},
    {"id": "D002", "name": "Cúm", "symptoms": ["đau đầu", "sốt", "mệt mỏi", "đau cơ"]}
  ],
  "symptoms": [
    {"id": "S001", "name": "đau đầu", "category": "Thần kinh"},
    {"id": "S002", "name": "sốt", "category": "Toàn thân"},
    {"id": "S003", "name": "ho", "category": "Hô hấp"},
    {"id": "S004", "name": "mệt mỏi", "category": "Toàn thân"}
  ]
}`

func newTestLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.ErrorLevel)
	return log
}

func writeKB(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge_base.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeKB failed: %v", err)
	}
	return path
}

// TestLoadValid verifies a well-formed knowledge base loads completely.
func TestLoadValid(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := len(store.Diseases()); got != 2 {
		t.Errorf("Expected 2 diseases, got %d", got)
	}
	if got := len(store.Symptoms()); got != 4 {
		t.Errorf("Expected 4 symptoms, got %d", got)
	}
}

// TestLoadMissingDiseaseField verifies a disease without symptoms fails the whole load.
func TestLoadMissingDiseaseField(t *testing.T) {
	bad := `{"diseases": [{"id": "D001", "name": "Cúm"}], "symptoms": []}`
	_, err := Load(writeKB(t, bad), newTestLogger())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
	if schemaErr.Field != "symptoms" {
		t.Errorf("Expected missing field symptoms, got %q", schemaErr.Field)
	}
}

// TestLoadNonListSymptoms verifies a non-list symptoms field is rejected.
func TestLoadNonListSymptoms(t *testing.T) {
	bad := `{"diseases": [{"id": "D001", "name": "Cúm", "symptoms": "sốt"}], "symptoms": []}`
	_, err := Load(writeKB(t, bad), newTestLogger())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
}

// TestLoadMissingSymptomCategory verifies symptom records need a category.
func TestLoadMissingSymptomCategory(t *testing.T) {
	bad := `{"diseases": [], "symptoms": [{"id": "S001", "name": "sốt"}]}`
	_, err := Load(writeKB(t, bad), newTestLogger())
	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Expected SchemaError, got %v", err)
	}
	if schemaErr.Kind != "symptom" || schemaErr.Field != "category" {
		t.Errorf("Expected symptom/category schema error, got %v", schemaErr)
	}
}

// TestLookups covers point lookups by id and name.
func TestLookups(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	d, err := store.DiseaseByID("D002")
	if err != nil {
		t.Fatalf("DiseaseByID failed: %v", err)
	}
	if d.Name != "Cúm" {
		t.Errorf("Expected Cúm, got %s", d.Name)
	}

	if _, err := store.DiseaseByID("D999"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	d, err = store.DiseaseByName("cảm LẠNH")
	if err != nil {
		t.Fatalf("DiseaseByName should be case-insensitive: %v", err)
	}
	if d.ID != "D001" {
		t.Errorf("Expected D001, got %s", d.ID)
	}

	sym, err := store.SymptomByID("S003")
	if err != nil {
		t.Fatalf("SymptomByID failed: %v", err)
	}
	if sym.Name != "ho" {
		t.Errorf("Expected ho, got %s", sym.Name)
	}
}

// TestSymptomsByCategory verifies category grouping keeps load order within a category.
func TestSymptomsByCategory(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	got := store.SymptomsByCategory("Toàn thân")
	names := make([]string, 0, len(got))
	for _, s := range got {
		names = append(names, s.Name)
	}
	want := []string{"sốt", "mệt mỏi"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected %v, got %v", want, names)
	}

	categories := store.Categories()
	want = []string{"Hô hấp", "Thần kinh", "Toàn thân"}
	if !reflect.DeepEqual(categories, want) {
		t.Errorf("Expected sorted categories %v, got %v", want, categories)
	}
}

// TestInsertDiseasePersists verifies inserts survive a reload.
func TestInsertDiseasePersists(t *testing.T) {
	path := writeKB(t, validKB)
	store, err := Load(path, newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err = store.InsertDisease(Disease{ID: "D003", Name: "Viêm họng", Symptoms: []string{"đau họng", "sốt"}})
	if err != nil {
		t.Fatalf("InsertDisease failed: %v", err)
	}

	reloaded, err := Load(path, newTestLogger())
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if _, err := reloaded.DiseaseByID("D003"); err != nil {
		t.Errorf("Inserted disease not persisted: %v", err)
	}
}

// TestInsertDuplicateID verifies a duplicate insert is rejected and the base is unchanged.
func TestInsertDuplicateID(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	before := store.Diseases()
	err = store.InsertDisease(Disease{ID: "D001", Name: "Khác", Symptoms: []string{"sốt"}})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID, got %v", err)
	}
	if !reflect.DeepEqual(before, store.Diseases()) {
		t.Error("Knowledge base changed after rejected insert")
	}

	err = store.InsertSymptom(Symptom{ID: "S001", Name: "khác", Category: "Khác"})
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("Expected ErrDuplicateID for symptom, got %v", err)
	}
}

// TestInsertMissingFields verifies inserts validate required fields.
func TestInsertMissingFields(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var schemaErr *SchemaError
	if err := store.InsertDisease(Disease{ID: "D009"}); !errors.As(err, &schemaErr) {
		t.Errorf("Expected SchemaError, got %v", err)
	}
	if err := store.InsertSymptom(Symptom{Name: "x"}); !errors.As(err, &schemaErr) {
		t.Errorf("Expected SchemaError, got %v", err)
	}
}

// TestStatistics verifies summary counts.
func TestStatistics(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	stats := store.Statistics()
	if stats.TotalDiseases != 2 || stats.TotalSymptoms != 4 {
		t.Errorf("Unexpected totals: %+v", stats)
	}
	if stats.SymptomCategories != 3 {
		t.Errorf("Expected 3 categories, got %d", stats.SymptomCategories)
	}
	if stats.AvgSymptomsPerDisease != 3.5 {
		t.Errorf("Expected 3.5 avg symptoms, got %v", stats.AvgSymptomsPerDisease)
	}
}

// TestContext verifies the LLM context contains diseases and grouped symptoms.
func TestContext(t *testing.T) {
	store, err := Load(writeKB(t, validKB), newTestLogger())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	ctx := store.Context()
	for _, want := range []string{"Cảm lạnh", "Cúm", "Thần kinh", "đau đầu", "Điều trị: nghỉ ngơi"} {
		if !strings.Contains(ctx, want) {
			t.Errorf("Context missing %q", want)
		}
	}
}
