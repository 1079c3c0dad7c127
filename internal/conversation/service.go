package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ai-doctor/internal/diagnosis"
	"ai-doctor/internal/knowledge"
	"ai-doctor/internal/llm"
)

// TurnState names the stages of one orchestrated turn.
type TurnState string

const (
	StateReceived          TurnState = "RECEIVED"
	StateEmergencyChecked  TurnState = "EMERGENCY_CHECKED"
	StateSymptomsExtracted TurnState = "SYMPTOMS_EXTRACTED"
	StateRanked            TurnState = "RANKED"
	StateDecision          TurnState = "DECISION"
	StateResponded         TurnState = "RESPONDED"
)

// TurnResult is what one user turn produces. Emergency turns carry only
// the escalation message; diagnosis turns may carry a report.
type TurnResult struct {
	Reply     string  `json:"reply"`
	Emergency bool    `json:"emergency"`
	Report    *Report `json:"report,omitempty"`
}

// ReportRenderer persists a diagnosis report for later retrieval.
// Rendering failures never fail the turn.
type ReportRenderer interface {
	Render(ctx context.Context, c *Conversation, r *Report) error
}

// Service orchestrates diagnosis conversations.
type Service interface {
	Create(ctx context.Context) (*Conversation, error)
	Get(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ProcessTurn(ctx context.Context, id uuid.UUID, text string) (*TurnResult, error)
	Reset(ctx context.Context, id uuid.UUID) error
}

type service struct {
	store   *knowledge.Store
	engine  *diagnosis.Engine
	gen     llm.Generator
	params  llm.Params
	reports ReportRenderer // optional
	archive Repository     // optional
	window  int
	log     *logrus.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Conversation
}

// NewService wires the orchestrator. reports and archive may be nil.
func NewService(store *knowledge.Store, engine *diagnosis.Engine, gen llm.Generator, params llm.Params,
	reports ReportRenderer, archive Repository, historyWindow int, log *logrus.Logger) Service {
	return &service{
		store:    store,
		engine:   engine,
		gen:      gen,
		params:   params,
		reports:  reports,
		archive:  archive,
		window:   historyWindow,
		log:      log,
		sessions: make(map[uuid.UUID]*Conversation),
	}
}

func (s *service) Create(ctx context.Context) (*Conversation, error) {
	c := NewConversation()
	s.mu.Lock()
	s.sessions[c.ID] = c
	s.mu.Unlock()

	if s.archive != nil {
		if err := s.archive.Save(ctx, c); err != nil {
			s.log.WithError(err).Warn("failed to archive new conversation")
		}
	}
	s.log.WithField("conversation_id", c.ID).Info("conversation created")
	return c, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	s.mu.RLock()
	c, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, knowledge.ErrNotFound)
	}
	return c, nil
}

func (s *service) Reset(ctx context.Context, id uuid.UUID) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	c.Reset()
	if s.archive != nil {
		if err := s.archive.Save(ctx, c); err != nil {
			s.log.WithError(err).Warn("failed to archive reset conversation")
		}
	}
	s.log.WithField("conversation_id", id).Info("conversation reset")
	return nil
}

// ProcessTurn runs the per-turn pipeline:
// RECEIVED -> EMERGENCY_CHECKED -> SYMPTOMS_EXTRACTED -> RANKED ->
// DECISION -> RESPONDED. An emergency hit jumps straight to RESPONDED.
// Conversation state is committed only once a response exists, so a
// failed turn still records the user's message and the visible error.
func (s *service) ProcessTurn(ctx context.Context, id uuid.UUID, text string) (*TurnResult, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	text = diagnosis.SanitizeInput(text)
	if text == "" {
		return nil, fmt.Errorf("empty message")
	}

	turnLog := s.log.WithFields(logrus.Fields{
		"conversation_id": id,
		"state":           StateReceived,
	})
	turnLog.Info("turn received")

	// The raw input is checked before anything else. A danger keyword
	// is terminal for the turn: no extraction, ranking or generation.
	if esc := diagnosis.DetectEmergency(text); esc != nil {
		turnLog.WithFields(logrus.Fields{
			"state":   StateResponded,
			"keyword": esc.Keyword,
		}).Warn("emergency keyword in input, escalating")
		return s.respond(ctx, c, text, esc.Message, nil, true)
	}
	turnLog = turnLog.WithField("state", StateEmergencyChecked)

	analysis := s.engine.Analyze(text, c.AccumulatedSymptoms)
	if analysis.Emergency != nil {
		// A danger keyword surfaced via the accumulated symptom set.
		return s.respond(ctx, c, text, analysis.Emergency.Message, nil, true)
	}
	turnLog.WithFields(logrus.Fields{
		"state":    StateRanked,
		"symptoms": len(analysis.Symptoms),
		"matches":  len(analysis.Matches),
	}).Info("analysis complete")

	history := c.RecentHistory(s.window)

	var reply string
	var report *Report
	switch {
	case analysis.HasEnoughInfo:
		reply, report = s.diagnose(ctx, c, text, analysis, history)
	case len(analysis.Matches) > 0:
		reply = s.askFollowUp(ctx, analysis)
	default:
		reply = s.askClarification(ctx, text)
	}

	result, err := s.respond(ctx, c, text, reply, report, false)
	if err != nil {
		return nil, err
	}
	c.AccumulatedSymptoms = analysis.Symptoms
	if s.archive != nil {
		if saveErr := s.archive.Save(ctx, c); saveErr != nil {
			s.log.WithError(saveErr).Warn("failed to archive conversation")
		}
	}
	s.log.WithFields(logrus.Fields{
		"conversation_id": id,
		"state":           StateResponded,
		"emergency":       false,
		"diagnosed":       report != nil,
	}).Info("turn responded")
	return result, nil
}

// respond commits the turn to conversation state and builds the result.
func (s *service) respond(ctx context.Context, c *Conversation, userText, reply string, report *Report, emergency bool) (*TurnResult, error) {
	c.AddMessage(RoleUser, userText)
	c.AddMessage(RoleAssistant, reply)
	if emergency && s.archive != nil {
		if err := s.archive.Save(ctx, c); err != nil {
			s.log.WithError(err).Warn("failed to archive conversation")
		}
	}
	return &TurnResult{Reply: reply, Emergency: emergency, Report: report}, nil
}

// diagnose requests a full diagnosis and assembles the report. Any
// generation failure degrades to the fallback message without a report.
func (s *service) diagnose(ctx context.Context, c *Conversation, userText string, a diagnosis.Analysis, history string) (string, *Report) {
	prompt := diagnosisPrompt(userText, symptomsInfo(a), s.store.Context(), history)
	text, err := s.gen.Generate(ctx, prompt, s.params)
	if err != nil {
		s.log.WithError(err).Error("diagnosis generation failed")
		return FallbackMessage, nil
	}

	report := s.buildReport(ctx, a, text)
	c.DiagnosisHistory = append(c.DiagnosisHistory, *report)
	if s.reports != nil {
		if err := s.reports.Render(ctx, c, report); err != nil {
			s.log.WithError(err).Warn("failed to render diagnosis report")
		}
	}
	return text, report
}

// askFollowUp requests clarifying questions grounded on the candidates.
func (s *service) askFollowUp(ctx context.Context, a diagnosis.Analysis) string {
	names := make([]string, 0, 3)
	for i, m := range a.Matches {
		if i >= 3 {
			break
		}
		names = append(names, m.Disease.Name)
	}
	text, err := s.gen.Generate(ctx, followUpPrompt(a.Symptoms, names), s.params)
	if err != nil {
		s.log.WithError(err).Error("follow-up generation failed")
		return FallbackMessage
	}
	return text
}

// askClarification handles turns where nothing in the knowledge base
// matched yet.
func (s *service) askClarification(ctx context.Context, userText string) string {
	text, err := s.gen.Generate(ctx, clarifyPrompt(userText), s.params)
	if err != nil {
		s.log.WithError(err).Error("clarification generation failed")
		return FallbackMessage
	}
	return text
}

// buildReport assembles the diagnosis report, asking the generator for a
// severity assessment and treatment recommendations. Both degrade
// quietly: severity to unknown, treatment to empty.
func (s *service) buildReport(ctx context.Context, a diagnosis.Analysis, diagnosisText string) *Report {
	ranked := make([]string, 0, 3)
	for i, m := range a.Matches {
		if i >= 3 {
			break
		}
		ranked = append(ranked, m.Disease.Name)
	}

	top := "Chưa xác định"
	if len(a.Matches) > 0 {
		top = a.Matches[0].Disease.Name
	}

	return &Report{
		CreatedAt:      time.Now(),
		Symptoms:       a.Symptoms,
		RankedDiseases: ranked,
		TopDiagnosis:   top,
		Confidence:     a.TopConfidence,
		Severity:       s.assessSeverity(ctx, a.Symptoms),
		DiagnosisText:  diagnosisText,
		Treatment:      s.treatment(ctx, top, a.Symptoms),
	}
}

func (s *service) assessSeverity(ctx context.Context, symptoms []string) Severity {
	fallback := Severity{Level: "unknown", Urgency: "should_see_doctor_soon"}
	text, err := s.gen.Generate(ctx, severityPrompt(symptoms), s.params)
	if err != nil {
		s.log.WithError(err).Warn("severity assessment failed")
		fallback.Explanation = "Không thể đánh giá"
		return fallback
	}

	var sev Severity
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &sev); err != nil || sev.Level == "" {
		fallback.Explanation = text
		return fallback
	}
	return sev
}

func (s *service) treatment(ctx context.Context, topDiagnosis string, symptoms []string) string {
	text, err := s.gen.Generate(ctx, treatmentPrompt(topDiagnosis, symptoms), s.params)
	if err != nil {
		s.log.WithError(err).Warn("treatment generation failed")
		return ""
	}
	return text
}

// stripCodeFence unwraps a ```json ... ``` block if the generator added one.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
