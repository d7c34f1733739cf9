package domain

import "time"

type DocumentStatus string

const (
	StatusUploaded   DocumentStatus = "uploaded"
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

type Document struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Filename    string         `json:"filename"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	PageCount   int            `json:"page_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Page is one extracted page of a document, before chunking and indexing.
type Page struct {
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// ChatRecord persists one answered query for history.
type ChatRecord struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	SessionID  string         `json:"session_id,omitempty"`
	Query      string         `json:"query"`
	Answer     string         `json:"answer"`
	Sources    []Source       `json:"sources"`
	Confidence float64        `json:"confidence"`
	TokensUsed int            `json:"tokens_used"`
	Metadata   AnswerMetadata `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}
