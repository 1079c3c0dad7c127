package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ai-doctor/internal/knowledge"
)

// ReportExporter renders a diagnosis report as a downloadable PDF.
type ReportExporter interface {
	PDF(c *Conversation, r *Report) ([]byte, error)
}

type Handler struct {
	svc      Service
	store    *knowledge.Store
	exporter ReportExporter // optional
}

func NewHandler(svc Service, store *knowledge.Store, exporter ReportExporter) *Handler {
	return &Handler{svc: svc, store: store, exporter: exporter}
}

type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
}

type ChatResponse struct {
	Reply     string  `json:"reply"`
	Emergency bool    `json:"emergency"`
	Report    *Report `json:"report,omitempty"`
	Warning   string  `json:"warning"`
}

type ResetRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Create(r.Context())
	if err != nil {
		http.Error(w, "Failed to create conversation", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": c.ID.String(),
	})
}

func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	result, err := h.svc.ProcessTurn(r.Context(), id, req.Text)
	if err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Processing failed: "+err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Reply:     result.Reply,
		Emergency: result.Emergency,
		Report:    result.Report,
		Warning:   WarningMessage,
	})
}

func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	id, err := uuid.Parse(req.ConversationID)
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	if err := h.svc.Reset(r.Context(), id); err != nil {
		if errors.Is(err, knowledge.ErrNotFound) {
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Reset failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) HandleReportDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid conversation ID", http.StatusBadRequest)
		return
	}

	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return
	}
	report := c.LatestReport()
	if report == nil {
		http.Error(w, "No diagnosis report yet", http.StatusNotFound)
		return
	}
	if h.exporter == nil {
		http.Error(w, "Report export not configured", http.StatusServiceUnavailable)
		return
	}

	data, err := h.exporter.PDF(c, report)
	if err != nil {
		http.Error(w, "Report rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="report_%s.pdf"`, c.ID))
	w.Write(data)
}

func (h *Handler) HandleKnowledgeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Statistics())
}

func (h *Handler) HandleListSymptoms(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	if category == "" {
		writeJSON(w, http.StatusOK, h.store.Symptoms())
		return
	}
	symptoms := h.store.SymptomsByCategory(category)
	if symptoms == nil {
		symptoms = []knowledge.Symptom{}
	}
	writeJSON(w, http.StatusOK, symptoms)
}

func (h *Handler) HandleAddDisease(w http.ResponseWriter, r *http.Request) {
	var d knowledge.Disease
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.store.InsertDisease(d); err != nil {
		writeInsertError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) HandleAddSymptom(w http.ResponseWriter, r *http.Request) {
	var s knowledge.Symptom
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := h.store.InsertSymptom(s); err != nil {
		writeInsertError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func writeInsertError(w http.ResponseWriter, err error) {
	var schemaErr *knowledge.SchemaError
	switch {
	case errors.Is(err, knowledge.ErrDuplicateID):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.As(err, &schemaErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "Insert failed", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/conversation", h.CreateConversation)
	r.Post("/conversation/chat", h.HandleChat)
	r.Post("/conversation/reset", h.HandleReset)
	r.Get("/conversation/{id}/report", h.HandleReportDownload)
	r.Get("/knowledge/stats", h.HandleKnowledgeStats)
	r.Get("/knowledge/symptoms", h.HandleListSymptoms)
	r.Post("/knowledge/diseases", h.HandleAddDisease)
	r.Post("/knowledge/symptoms", h.HandleAddSymptom)
}
