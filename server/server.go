// Package server exposes the ingestion, retrieval, and generation pipeline
// over HTTP, plus a WebSocket endpoint for the tutor chat.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AnvinX1/Firm-ai-sub000/internal/models"
	"github.com/AnvinX1/Firm-ai-sub000/internal/types"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/apperr"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/generate"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/ingest"
	"github.com/AnvinX1/Firm-ai-sub000/pkg/retrieval"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Be careful with this in production
	},
}

// Message is the WebSocket frame for the tutor chat. Type is one of
// "chat", "status", "response", or "error".
type Message struct {
	Type        string                `json:"type"`
	Content     string                `json:"content"`
	OwnerID     string                `json:"owner_id,omitempty"`
	CaseIDs     []string              `json:"case_ids,omitempty"`
	CaseHistory []generate.CaseRef    `json:"case_history,omitempty"`
	StudyTopic  string                `json:"study_topic,omitempty"`
	Data        interface{}           `json:"data,omitempty"`
}

type ServerConfig struct {
	Addr string
	// RequestTimeout bounds each HTTP generation request.
	RequestTimeout time.Duration
}

type Server struct {
	config    ServerConfig
	ingester  *ingest.Service
	retriever *retrieval.Service
	generator *generate.Orchestrator
	docs      types.DocumentStore
	log       *zap.Logger
}

func New(config ServerConfig, ingester *ingest.Service, retriever *retrieval.Service, generator *generate.Orchestrator, docs types.DocumentStore, log *zap.Logger) *Server {
	if config.Addr == "" {
		config.Addr = ":8080"
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = 2 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		config:    config,
		ingester:  ingester,
		retriever: retriever,
		generator: generator,
		docs:      docs,
		log:       log,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/ingest", s.handleIngest)
	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/case-summaries", s.handleCaseSummary)
	mux.HandleFunc("POST /api/quizzes", s.handleQuiz)
	mux.HandleFunc("POST /api/mock-exams", s.handleMockExam)
	mux.HandleFunc("GET /api/documents/{id}", s.handleDocumentStatus)
	mux.HandleFunc("DELETE /api/documents/{id}", s.handleDocumentDelete)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}

// ListenAndServe blocks serving requests until the listener fails.
func (s *Server) ListenAndServe() error {
	s.log.Info("starting server", zap.String("addr", s.config.Addr))
	return http.ListenAndServe(s.config.Addr, s.Handler())
}

type ingestRequest struct {
	DocumentID string              `json:"document_id,omitempty"`
	OwnerID    string              `json:"owner_id,omitempty"`
	CaseID     string              `json:"case_id,omitempty"`
	Title      string              `json:"title"`
	Type       models.DocumentType `json:"document_type"`
	// Content is base64 so PDFs survive the JSON transport.
	Content  string `json:"content"`
	Filename string `json:"filename,omitempty"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.KindValidation, "server.ingest", err))
		return
	}
	content, err := base64.StdEncoding.DecodeString(req.Content)
	if err != nil {
		// Tolerate clients that send plain text unencoded.
		content = []byte(req.Content)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	result, err := s.ingester.Ingest(ctx, ingest.Request{
		DocumentID: req.DocumentID,
		OwnerID:    req.OwnerID,
		CaseID:     req.CaseID,
		Title:      req.Title,
		Type:       req.Type,
		Content:    content,
		Filename:   req.Filename,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, result)
}

type searchRequest struct {
	Query               string   `json:"query"`
	OwnerID             string   `json:"owner_id,omitempty"`
	CaseIDs             []string `json:"case_ids,omitempty"`
	IncludeSharedCorpus bool     `json:"include_shared_corpus,omitempty"`
	Limit               int      `json:"limit,omitempty"`
	MinSimilarity       float64  `json:"min_similarity,omitempty"`
}

func (r searchRequest) options() types.SearchOptions {
	return types.SearchOptions{
		OwnerID:             r.OwnerID,
		CaseIDs:             r.CaseIDs,
		IncludeSharedCorpus: r.IncludeSharedCorpus,
		Limit:               r.Limit,
		MinSimilarity:       r.MinSimilarity,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.KindValidation, "server.search", err))
		return
	}

	results, err := s.retriever.Search(r.Context(), req.Query, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

type summaryRequest struct {
	CaseText string `json:"case_text"`
	searchRequest
}

func (s *Server) handleCaseSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.KindValidation, "server.summary", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	summary, err := s.generator.CaseSummary(ctx, req.CaseText, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

type quizRequest struct {
	Material     string `json:"material"`
	NumQuestions int    `json:"num_questions"`
	searchRequest
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.KindValidation, "server.quiz", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	questions, err := s.generator.Quiz(ctx, req.Material, req.NumQuestions, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"questions": questions})
}

type examRequest struct {
	Topics       []string `json:"topics"`
	NumQuestions int      `json:"num_questions"`
	searchRequest
}

func (s *Server) handleMockExam(w http.ResponseWriter, r *http.Request) {
	var req examRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, apperr.New(apperr.KindValidation, "server.exam", err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	exam, err := s.generator.MockExam(ctx, req.Topics, req.NumQuestions, req.options())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, exam)
}

func (s *Server) handleDocumentStatus(w http.ResponseWriter, r *http.Request) {
	doc, err := s.docs.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDocumentDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			break
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.sendMessage(conn, "error", "message is not valid JSON")
			continue
		}
		s.handleChatTurn(r.Context(), conn, msg)
	}
}

// handleChatTurn answers one tutor message. Turns are handled sequentially
// per connection so replies arrive in question order.
func (s *Server) handleChatTurn(ctx context.Context, conn *websocket.Conn, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RequestTimeout)
	defer cancel()

	opts := types.SearchOptions{
		OwnerID:             msg.OwnerID,
		CaseIDs:             msg.CaseIDs,
		IncludeSharedCorpus: true,
	}
	tc := generate.TutorContext{
		CaseHistory: msg.CaseHistory,
		StudyTopic:  msg.StudyTopic,
	}

	reply, err := s.generator.TutorRespond(ctx, msg.Content, tc, opts)
	if err != nil {
		s.log.Warn("tutor turn failed", zap.Error(err))
		s.sendMessage(conn, "error", apperr.Present(err).Message)
		return
	}
	s.sendMessage(conn, "response", reply)
}

func (s *Server) sendMessage(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(Message{Type: msgType, Content: content}); err != nil {
		s.log.Warn("failed to send websocket message", zap.Error(err))
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.log.Warn("request failed",
		zap.String("kind", apperr.KindOf(err).String()),
		zap.Error(err))
	s.writeJSON(w, apperr.HTTPStatus(err), map[string]interface{}{
		"error": apperr.Present(err),
	})
}
