package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn half.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Severity is the LLM's structured severity assessment.
type Severity struct {
	Level       string `json:"severity_level"` // mild/moderate/severe/critical/unknown
	Urgency     string `json:"urgency"`        // can_wait/should_see_doctor_soon/emergency
	Explanation string `json:"explanation"`
}

// Report is one completed diagnosis. Reports accumulate in the
// conversation's diagnosis history and may be archived and rendered as
// PDF, but a turn never depends on them being persisted.
type Report struct {
	CreatedAt        time.Time `json:"created_at"`
	Symptoms         []string  `json:"symptoms"`
	RankedDiseases   []string  `json:"ranked_diseases"` // top three candidate names
	TopDiagnosis     string    `json:"top_diagnosis"`
	Confidence       float64   `json:"confidence"`
	Severity         Severity  `json:"severity"`
	DiagnosisText    string    `json:"diagnosis_text"`
	Treatment        string    `json:"treatment,omitempty"`
	EmergencyWarning string    `json:"emergency_warning,omitempty"`
}

// Conversation is the aggregate root: one user's session, owned by
// exactly one caller at a time. Mutated only by the orchestrator.
type Conversation struct {
	ID uuid.UUID `json:"id"`

	// Full, unbounded chat history. Only the most recent window is
	// exposed to the text-generation service.
	Messages []Message `json:"messages"`

	// Deduplicated union of symptoms mentioned across all turns.
	AccumulatedSymptoms []string `json:"accumulated_symptoms"`

	DiagnosisHistory []Report `json:"diagnosis_history"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates an empty session.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends one message to the full history.
func (c *Conversation) AddMessage(role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	c.UpdatedAt = time.Now()
}

// RecentHistory formats the most recent max messages for prompt
// building. Oldest messages drop first; the full history stays on the
// conversation regardless.
func (c *Conversation) RecentHistory(max int) string {
	msgs := c.Messages
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	var lines []string
	for _, m := range msgs {
		speaker := "AI Doctor"
		if m.Role == RoleUser {
			speaker = "User"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}

// LatestReport returns the most recent diagnosis report, or nil.
func (c *Conversation) LatestReport() *Report {
	if len(c.DiagnosisHistory) == 0 {
		return nil
	}
	return &c.DiagnosisHistory[len(c.DiagnosisHistory)-1]
}

// Reset clears messages, accumulated symptoms and diagnosis history in
// one step. The conversation keeps its identity.
func (c *Conversation) Reset() {
	c.Messages = nil
	c.AccumulatedSymptoms = nil
	c.DiagnosisHistory = nil
	c.UpdatedAt = time.Now()
}
