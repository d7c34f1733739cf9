package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const userIDHeader = "X-User-Id"

// Config carries the traffic-control knobs for the public handler.
type Config struct {
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxInFlight     int
	BackpressureMax time.Duration
}

// HealthProber reports whether a downstream dependency is reachable.
// Satisfied by the embedding client.
type HealthProber interface {
	Health(ctx context.Context) bool
}

// AnswerObserver records served answers for the metrics endpoint.
type AnswerObserver interface {
	RecordAnsweredQuery(service, questionType string, sourceCount int, duration time.Duration)
}

type Router struct {
	queryUC   ports.QueryService
	ingestUC  ports.DocumentIngestor
	docs      ports.DocumentReader
	history   ports.ChatHistoryReader
	embedding HealthProber
	metrics   AnswerObserver
	log       *slog.Logger
	cfg       Config
}

func NewRouter(
	queryUC ports.QueryService,
	ingestUC ports.DocumentIngestor,
	docs ports.DocumentReader,
	history ports.ChatHistoryReader,
	embedding HealthProber,
	metrics AnswerObserver,
	log *slog.Logger,
	cfg Config,
) *Router {
	return &Router{
		queryUC:   queryUC,
		ingestUC:  ingestUC,
		docs:      docs,
		history:   history,
		embedding: embedding,
		metrics:   metrics,
		log:       log,
		cfg:       cfg,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	mux.HandleFunc("/v1/query/history", rt.queryHistory)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.getDocumentByID)

	wait := rt.cfg.BackpressureMax
	if wait <= 0 {
		wait = 2 * time.Second
	}

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, wait)
	handler = accessLogMiddleware(rt.log, handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	// Embedding being down degrades retrieval to keyword search, so the
	// service still answers with a 200 while reporting the outage.
	status := "ok"
	embeddingStatus := "healthy"
	if rt.embedding == nil || !rt.embedding.Health(r.Context()) {
		status = "degraded"
		embeddingStatus = "unreachable"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": status,
		"dependencies": map[string]string{
			"embedding": embeddingStatus,
		},
	})
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	var req struct {
		Query       string   `json:"query"`
		SessionID   string   `json:"session_id"`
		DocumentIDs []string `json:"document_ids"`
		Language    string   `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}

	start := time.Now()
	answer, err := rt.queryUC.AnswerQuery(r.Context(), domain.QueryRequest{
		UserID:      userID,
		SessionID:   req.SessionID,
		Query:       req.Query,
		DocumentIDs: req.DocumentIDs,
		Language:    req.Language,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnsweredQuery("api", string(answer.Metadata.Classification.Type), len(answer.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) queryHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 100 {
			writeJSONError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = parsed
	}

	records, err := rt.history.ListChats(r.Context(), userID, limit)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": records})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	doc, err := rt.ingestUC.Upload(
		r.Context(),
		userID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	userID, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusBadRequest, "document id is required")
		return
	}

	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	// Do not reveal other users' documents.
	if doc.UserID != userID {
		rt.writeError(w, r, domain.WrapError(domain.ErrDocumentNotFound, "fetch document", errors.New("not owned by caller")))
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "X-User-Id header is required")
		return "", false
	}
	return userID, true
}

// writeError maps a pipeline error to a status code. Upstream error detail
// (which can include provider response bodies) stays in the server log; 5xx
// clients only get the generic status text.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status >= 500 {
		rt.log.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = http.StatusText(status)
	}
	writeJSONError(w, status, message)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
