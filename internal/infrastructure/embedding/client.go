// Package embedding is the HTTP client for the external embedding service.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studymate/docqa/internal/core/ports"
)

const (
	healthTimeout = 5 * time.Second
	embedTimeout  = 10 * time.Second
	batchTimeout  = 30 * time.Second

	// Longer inputs are truncated before embedding; the model's useful
	// context ends well before this anyway.
	maxEmbedTextLen = 8000
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

var _ ports.EmbeddingService = (*Client)(nil)

func (c *Client) Health(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	var status struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return false
	}
	return status.Status == "healthy"
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	text = truncateText(text)
	if text == "" {
		return nil, fmt.Errorf("embed: empty text")
	}

	ctx, cancel := context.WithTimeout(ctx, embedTimeout)
	defer cancel()

	var response struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := c.postJSON(ctx, "/embed", map[string]string{"text": text}, &response); err != nil {
		return nil, err
	}
	if len(response.Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty vector in response")
	}
	return response.Embedding, nil
}

func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		trimmed[i] = truncateText(t)
	}

	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := c.postJSON(ctx, "/embed/batch", map[string][]string{"texts": trimmed}, &response); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("embedding service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("embedding service status: %s", resp.Status)
		}
		return fmt.Errorf("embedding service status: %s: %s", resp.Status, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode embed response: %w", err)
	}
	return nil
}

func truncateText(text string) string {
	text = strings.TrimSpace(text)
	if len(text) > maxEmbedTextLen {
		return text[:maxEmbedTextLen]
	}
	return text
}
