package diagnosis

import "strings"

// ExtractSymptoms returns every known symptom name mentioned in text,
// in known-name order, without duplicates. Matching is case-folded
// substring containment: no tokenization, no stemming. A longer symptom
// phrase that contains a shorter known name yields both matches; ranking
// depends on that behavior.
func ExtractSymptoms(text string, knownNames []string) []string {
	folded := strings.ToLower(text)
	seen := make(map[string]bool)
	var found []string
	for _, name := range knownNames {
		if name == "" {
			continue
		}
		nameFolded := strings.ToLower(name)
		if seen[nameFolded] {
			continue
		}
		if strings.Contains(folded, nameFolded) {
			seen[nameFolded] = true
			found = append(found, name)
		}
	}
	return found
}

// SanitizeInput collapses whitespace and strips angle brackets from
// user-supplied text.
func SanitizeInput(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "<", "")
	text = strings.ReplaceAll(text, ">", "")
	return strings.TrimSpace(text)
}
