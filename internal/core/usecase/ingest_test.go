package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/studymate/docqa/internal/core/domain"
)

type repoFake struct {
	created   *domain.Document
	createErr error

	doc       *domain.Document
	getErr    error
	statuses  []domain.DocumentStatus
	pageCount int
}

func (f *repoFake) Create(_ context.Context, doc *domain.Document) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = doc
	return nil
}

func (f *repoFake) GetByID(context.Context, string) (*domain.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.doc, nil
}

func (f *repoFake) UpdateStatus(_ context.Context, _ string, status domain.DocumentStatus, _ string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *repoFake) SetPageCount(_ context.Context, _ string, pages int) error {
	f.pageCount = pages
	return nil
}

type storageFake struct {
	key string
	err error
}

func (f *storageFake) Save(_ context.Context, key string, _ io.Reader) error {
	if f.err != nil {
		return f.err
	}
	f.key = key
	return nil
}

func (f *storageFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not used")
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishDocumentIngested(_ context.Context, documentID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *queueFake) SubscribeDocumentIngested(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestUploadStoresAndPublishes(t *testing.T) {
	repo := &repoFake{}
	storage := &storageFake{}
	queue := &queueFake{}
	uc := NewIngestDocumentUseCase(repo, storage, queue)

	doc, err := uc.Upload(context.Background(), "u1", "my notes.pdf", "application/pdf", bytes.NewBufferString("data"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if doc.Status != domain.StatusUploaded {
		t.Fatalf("expected uploaded status, got %s", doc.Status)
	}
	if doc.UserID != "u1" {
		t.Fatalf("expected user id on document, got %q", doc.UserID)
	}
	if !strings.HasPrefix(storage.key, "u1/") || !strings.HasSuffix(storage.key, "_my_notes.pdf") {
		t.Fatalf("unexpected storage key %q", storage.key)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected ingestion event for %s, got %v", doc.ID, queue.published)
	}
	if repo.created == nil {
		t.Fatalf("document metadata was not persisted")
	}
}

func TestUploadRequiresUserID(t *testing.T) {
	uc := NewIngestDocumentUseCase(&repoFake{}, &storageFake{}, &queueFake{})

	_, err := uc.Upload(context.Background(), " ", "a.pdf", "application/pdf", bytes.NewBufferString("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUploadStorageFailure(t *testing.T) {
	uc := NewIngestDocumentUseCase(&repoFake{}, &storageFake{err: errors.New("disk full")}, &queueFake{})

	_, err := uc.Upload(context.Background(), "u1", "a.pdf", "application/pdf", bytes.NewBufferString("x"))
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("../weird name!.pdf"); got != "weird_name_.pdf" {
		t.Fatalf("sanitizeFilename = %q", got)
	}
	if got := sanitizeFilename(""); got != "document.bin" {
		t.Fatalf("empty name fallback = %q", got)
	}
}
