package knowledge

import (
	"errors"
	"fmt"
)

// Symptom is a single known symptom. Name is the string matched against
// free text; Category groups symptoms for display and prompt building.
type Symptom struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Disease references its symptoms by name, not by id. The matching
// algorithm depends on this denormalization; do not change it.
type Disease struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Symptoms    []string `json:"symptoms"`
	Treatment   string   `json:"treatment,omitempty"`
}

// Base is the on-disk shape of the knowledge base document.
type Base struct {
	Diseases []Disease `json:"diseases"`
	Symptoms []Symptom `json:"symptoms"`
}

// Stats summarizes the knowledge base contents.
type Stats struct {
	TotalDiseases         int     `json:"total_diseases"`
	TotalSymptoms         int     `json:"total_symptoms"`
	SymptomCategories     int     `json:"symptom_categories"`
	AvgSymptomsPerDisease float64 `json:"avg_symptoms_per_disease"`
}

// ErrDuplicateID is returned by inserts when the record id is already taken.
var ErrDuplicateID = errors.New("duplicate id")

// ErrNotFound is returned by lookups when no record matches.
var ErrNotFound = errors.New("record not found")

// SchemaError reports a malformed knowledge record. A SchemaError during
// load is fatal: the process must not start on a bad knowledge base.
type SchemaError struct {
	Kind  string // "disease" or "symptom"
	Index int
	Field string
	Msg   string
}

func (e *SchemaError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s record %d: %s", e.Kind, e.Index, e.Msg)
	}
	return fmt.Sprintf("%s record %d: missing required field %q", e.Kind, e.Index, e.Field)
}
