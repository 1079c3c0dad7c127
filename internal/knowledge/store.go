package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Store holds the validated knowledge base. It is read-mostly: loaded once
// at startup and mutated only through the insert operations, which persist
// by overwriting the backing file.
type Store struct {
	mu   sync.RWMutex
	path string
	base Base
	log  *logrus.Logger
}

// Load reads and validates the knowledge base file. Any record missing a
// required field fails the whole load with a *SchemaError.
func Load(path string, log *logrus.Logger) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base %s: %w", path, err)
	}

	if err := validateRaw(data); err != nil {
		return nil, err
	}

	var base Base
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("parse knowledge base %s: %w", path, err)
	}

	s := &Store{path: path, base: base, log: log}
	log.WithFields(logrus.Fields{
		"diseases": len(base.Diseases),
		"symptoms": len(base.Symptoms),
	}).Info("knowledge base loaded")
	return s, nil
}

// validateRaw checks required fields on the raw JSON so that a missing key
// is distinguishable from a zero value.
func validateRaw(data []byte) error {
	var raw struct {
		Diseases []map[string]json.RawMessage `json:"diseases"`
		Symptoms []map[string]json.RawMessage `json:"symptoms"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse knowledge base: %w", err)
	}

	for i, d := range raw.Diseases {
		for _, field := range []string{"id", "name", "symptoms"} {
			if _, ok := d[field]; !ok {
				return &SchemaError{Kind: "disease", Index: i, Field: field}
			}
		}
		var names []string
		if err := json.Unmarshal(d["symptoms"], &names); err != nil {
			return &SchemaError{Kind: "disease", Index: i, Msg: "symptoms must be a list of names"}
		}
	}
	for i, s := range raw.Symptoms {
		for _, field := range []string{"id", "name", "category"} {
			if _, ok := s[field]; !ok {
				return &SchemaError{Kind: "symptom", Index: i, Field: field}
			}
		}
	}
	return nil
}

// Diseases returns all diseases in load order.
func (s *Store) Diseases() []Disease {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Disease, len(s.base.Diseases))
	copy(out, s.base.Diseases)
	return out
}

// Symptoms returns all symptoms in load order.
func (s *Store) Symptoms() []Symptom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Symptom, len(s.base.Symptoms))
	copy(out, s.base.Symptoms)
	return out
}

// SymptomNames returns every known symptom name, in load order.
func (s *Store) SymptomNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.base.Symptoms))
	for _, sym := range s.base.Symptoms {
		names = append(names, sym.Name)
	}
	return names
}

// DiseaseByID returns the disease with the given id, or ErrNotFound.
func (s *Store) DiseaseByID(id string) (Disease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, d := range s.base.Diseases {
		if d.ID == id {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("disease %q: %w", id, ErrNotFound)
}

// DiseaseByName returns the disease with the given name, compared
// case-insensitively, or ErrNotFound.
func (s *Store) DiseaseByName(name string) (Disease, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	folded := strings.ToLower(name)
	for _, d := range s.base.Diseases {
		if strings.ToLower(d.Name) == folded {
			return d, nil
		}
	}
	return Disease{}, fmt.Errorf("disease %q: %w", name, ErrNotFound)
}

// SymptomByID returns the symptom with the given id, or ErrNotFound.
func (s *Store) SymptomByID(id string) (Symptom, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sym := range s.base.Symptoms {
		if sym.ID == id {
			return sym, nil
		}
	}
	return Symptom{}, fmt.Errorf("symptom %q: %w", id, ErrNotFound)
}

// SymptomsByCategory returns the symptoms of one category in load order.
func (s *Store) SymptomsByCategory(category string) []Symptom {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Symptom
	for _, sym := range s.base.Symptoms {
		if sym.Category == category {
			out = append(out, sym)
		}
	}
	return out
}

// Categories returns the sorted unique symptom categories.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, sym := range s.base.Symptoms {
		if sym.Category != "" && !seen[sym.Category] {
			seen[sym.Category] = true
			out = append(out, sym.Category)
		}
	}
	sort.Strings(out)
	return out
}

// InsertDisease validates and appends a disease, then persists the whole
// base. Returns ErrDuplicateID if the id is already taken; the base is
// left unchanged in that case.
func (s *Store) InsertDisease(d Disease) error {
	if d.ID == "" || d.Name == "" || d.Symptoms == nil {
		return &SchemaError{Kind: "disease", Index: -1, Msg: "id, name and symptoms are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.base.Diseases {
		if existing.ID == d.ID {
			return fmt.Errorf("disease %q: %w", d.ID, ErrDuplicateID)
		}
	}
	s.base.Diseases = append(s.base.Diseases, d)
	if err := s.save(); err != nil {
		s.base.Diseases = s.base.Diseases[:len(s.base.Diseases)-1]
		return err
	}
	s.log.WithField("disease", d.Name).Info("disease added to knowledge base")
	return nil
}

// InsertSymptom validates and appends a symptom, then persists the whole
// base. Returns ErrDuplicateID if the id is already taken.
func (s *Store) InsertSymptom(sym Symptom) error {
	if sym.ID == "" || sym.Name == "" || sym.Category == "" {
		return &SchemaError{Kind: "symptom", Index: -1, Msg: "id, name and category are required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.base.Symptoms {
		if existing.ID == sym.ID {
			return fmt.Errorf("symptom %q: %w", sym.ID, ErrDuplicateID)
		}
	}
	s.base.Symptoms = append(s.base.Symptoms, sym)
	if err := s.save(); err != nil {
		s.base.Symptoms = s.base.Symptoms[:len(s.base.Symptoms)-1]
		return err
	}
	s.log.WithField("symptom", sym.Name).Info("symptom added to knowledge base")
	return nil
}

// save overwrites the backing file with the current base. Caller holds the
// write lock.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.base, "", "  ")
	if err != nil {
		return fmt.Errorf("encode knowledge base: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write knowledge base %s: %w", s.path, err)
	}
	return nil
}

// Statistics returns summary counts over the knowledge base.
func (s *Store) Statistics() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalDiseases: len(s.base.Diseases),
		TotalSymptoms: len(s.base.Symptoms),
	}
	seen := make(map[string]bool)
	for _, sym := range s.base.Symptoms {
		if sym.Category != "" {
			seen[sym.Category] = true
		}
	}
	st.SymptomCategories = len(seen)
	if len(s.base.Diseases) > 0 {
		total := 0
		for _, d := range s.base.Diseases {
			total += len(d.Symptoms)
		}
		st.AvgSymptomsPerDisease = float64(total) / float64(len(s.base.Diseases))
	}
	return st
}

// Context renders the knowledge base as the context block handed to the
// text-generation service: diseases with their symptoms and treatment,
// then symptoms grouped by category.
func (s *Store) Context() string {
	var b strings.Builder

	b.WriteString("=== CÁC BỆNH PHỔ BIẾN ===\n\n")
	for _, d := range s.Diseases() {
		desc := d.Description
		if desc == "" {
			desc = "N/A"
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.Name, d.ID, desc)
		fmt.Fprintf(&b, "  Triệu chứng: %s\n", strings.Join(d.Symptoms, ", "))
		if d.Treatment != "" {
			fmt.Fprintf(&b, "  Điều trị: %s\n", d.Treatment)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n=== CÁC TRIỆU CHỨNG ===\n")
	for _, category := range s.Categories() {
		fmt.Fprintf(&b, "\n%s:\n", category)
		for _, sym := range s.SymptomsByCategory(category) {
			fmt.Fprintf(&b, "  - %s (%s)\n", sym.Name, sym.ID)
		}
	}

	return b.String()
}
