package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/studymate/docqa/internal/core/domain"
)

type querySuccessFake struct {
	lastReq domain.QueryRequest
}

func (f *querySuccessFake) AnswerQuery(_ context.Context, req domain.QueryRequest) (*domain.Answer, error) {
	f.lastReq = req
	return &domain.Answer{
		Answer:     "TCP is a transport protocol. [Document: net.pdf, Page: 3]",
		Sources:    []domain.Source{{DocumentID: "doc-1", DocumentName: "net.pdf", Page: 3, Relevance: 0.8}},
		Confidence: 0.9,
		Metadata: domain.AnswerMetadata{
			Classification: domain.QueryClassification{Type: domain.QuestionGeneral},
		},
	}, nil
}

type healthProbeFake struct {
	healthy bool
}

func (f healthProbeFake) Health(context.Context) bool { return f.healthy }

type answerObserverFake struct {
	calls        int
	service      string
	questionType string
	sourceCount  int
}

func (f *answerObserverFake) RecordAnsweredQuery(service, questionType string, sourceCount int, _ time.Duration) {
	f.calls++
	f.service = service
	f.questionType = questionType
	f.sourceCount = sourceCount
}

type queryErrFake struct {
	err error
}

func (f queryErrFake) AnswerQuery(_ context.Context, _ domain.QueryRequest) (*domain.Answer, error) {
	return nil, f.err
}

type ingestSuccessFake struct{}

func (f ingestSuccessFake) Upload(_ context.Context, userID, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", io.EOF)
	}

	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		UserID:      userID,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: userID + "/doc-1_file.txt",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type docsFake struct {
	doc *domain.Document
	err error
}

func (f docsFake) GetByID(_ context.Context, _ string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type historyFake struct {
	records []domain.ChatRecord
}

func (f historyFake) ListChats(_ context.Context, _ string, _ int) ([]domain.ChatRecord, error) {
	return f.records, nil
}

func newTestHandler(cfg Config) http.Handler {
	return newTestHandlerWith(cfg, &querySuccessFake{}, docsFake{doc: &domain.Document{ID: "doc-1", UserID: "user-1"}})
}

func newTestHandlerWith(cfg Config, query *querySuccessFake, docs docsFake) http.Handler {
	return NewRouter(
		query,
		ingestSuccessFake{},
		docs,
		historyFake{},
		healthProbeFake{healthy: true},
		nil,
		slog.New(slog.DiscardHandler),
		cfg,
	).Handler()
}

func newErrHandler(err error) http.Handler {
	return NewRouter(
		queryErrFake{err: err},
		ingestSuccessFake{},
		docsFake{err: err},
		historyFake{},
		healthProbeFake{healthy: true},
		nil,
		slog.New(slog.DiscardHandler),
		Config{},
	).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestHandler(Config{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}

	var resp struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || resp.Dependencies["embedding"] != "healthy" {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}

func TestHealthzReportsEmbeddingOutage(t *testing.T) {
	handler := NewRouter(
		&querySuccessFake{},
		ingestSuccessFake{},
		docsFake{},
		historyFake{},
		healthProbeFake{healthy: false},
		nil,
		slog.New(slog.DiscardHandler),
		Config{},
	).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	// Retrieval falls back to keyword search, so the endpoint stays 200
	// but flags the degradation.
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "degraded" || resp.Dependencies["embedding"] != "unreachable" {
		t.Fatalf("unexpected health payload: %+v", resp)
	}
}

func TestAnswerQueryRecordsMetrics(t *testing.T) {
	observer := &answerObserverFake{}
	handler := NewRouter(
		&querySuccessFake{},
		ingestSuccessFake{},
		docsFake{},
		historyFake{},
		healthProbeFake{healthy: true},
		observer,
		slog.New(slog.DiscardHandler),
		Config{},
	).Handler()

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"what is tcp"}`))
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if observer.calls != 1 {
		t.Fatalf("expected one recorded answer, got %d", observer.calls)
	}
	if observer.service != "api" || observer.questionType != "general" || observer.sourceCount != 1 {
		t.Fatalf("unexpected observation: %+v", observer)
	}
}

func TestServerErrorsHideUpstreamDetail(t *testing.T) {
	upstream := `llm returned status 500: {"error":{"message":"billing quota exceeded for key sk-abc123"}}`
	handler := newErrHandler(domain.WrapError(domain.ErrGenerationFailed, "generate", errors.New(upstream)))

	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"what is tcp"}`))
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	body := res.Body.String()
	if strings.Contains(body, "sk-abc123") || strings.Contains(body, "billing quota") {
		t.Fatalf("upstream detail leaked to client: %s", body)
	}
	var resp map[string]string
	if err := json.NewDecoder(strings.NewReader(body)).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != http.StatusText(http.StatusBadGateway) {
		t.Fatalf("error message = %q", resp["error"])
	}
}

func TestAnswerQueryRequiresUserHeader(t *testing.T) {
	handler := newTestHandler(Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"what is tcp"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAnswerQueryPassesRequestThrough(t *testing.T) {
	query := &querySuccessFake{}
	handler := newTestHandlerWith(Config{}, query, docsFake{})

	body := `{"query":"what is tcp","session_id":"sess-1","document_ids":["doc-1"],"language":"hi"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(body))
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if query.lastReq.UserID != "user-1" ||
		query.lastReq.SessionID != "sess-1" ||
		query.lastReq.Language != "hi" ||
		len(query.lastReq.DocumentIDs) != 1 {
		t.Fatalf("request not passed through: %+v", query.lastReq)
	}

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["confidence"] != 0.9 {
		t.Fatalf("confidence = %v", resp["confidence"])
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid_input", domain.WrapError(domain.ErrInvalidInput, "answer", errors.New("empty")), http.StatusBadRequest},
		{"not_found", domain.WrapError(domain.ErrDocumentNotFound, "fetch", errors.New("missing")), http.StatusNotFound},
		{"temporary", domain.WrapError(domain.ErrTemporary, "generate", errors.New("llm down")), http.StatusServiceUnavailable},
		{"generation", domain.WrapError(domain.ErrGenerationFailed, "generate", errors.New("bad output")), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newErrHandler(tc.err)
			req := httptest.NewRequest(http.MethodPost, "/v1/query", strings.NewReader(`{"query":"q"}`))
			req.Header.Set(userIDHeader, "user-1")
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, res.Code)
			}
		})
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	handler := newTestHandler(Config{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "file.txt")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}

	var docResp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&docResp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if docResp["id"] != "doc-1" {
		t.Fatalf("id = %v", docResp["id"])
	}
}

func TestGetDocumentHidesOtherUsersDocuments(t *testing.T) {
	handler := newTestHandlerWith(Config{}, &querySuccessFake{},
		docsFake{doc: &domain.Document{ID: "doc-1", UserID: "someone-else"}})

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestQueryHistoryRejectsBadLimit(t *testing.T) {
	handler := newTestHandler(Config{})
	req := httptest.NewRequest(http.MethodGet, "/v1/query/history?limit=0", nil)
	req.Header.Set(userIDHeader, "user-1")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
