// Package cohere implements the optional reranking collaborator against the
// Cohere rerank API.
package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
)

const (
	defaultBaseURL = "https://api.cohere.com/v2"
	rerankModel    = "rerank-english-v3.0"
	rerankTimeout  = 15 * time.Second
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New returns nil when no API key is configured. A nil reranker is a valid
// state for callers; the rerank stage simply passes results through.
func New(baseURL, apiKey string) *Client {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

var _ ports.Reranker = (*Client)(nil)

type rerankRequest struct {
	Model           string   `json:"model"`
	Query           string   `json:"query"`
	Documents       []string `json:"documents"`
	TopN            int      `json:"top_n"`
	ReturnDocuments bool     `json:"return_documents"`
}

type rerankResponse struct {
	Results []struct {
		Index          int     `json:"index"`
		RelevanceScore float64 `json:"relevance_score"`
	} `json:"results"`
}

func (c *Client) Rerank(ctx context.Context, query string, results []domain.FusedResult, topK int) ([]domain.RankedResult, error) {
	if len(results) == 0 {
		return nil, nil
	}

	documents := make([]string, len(results))
	for i, r := range results {
		documents[i] = r.Content
	}

	ctx, cancel := context.WithTimeout(ctx, rerankTimeout)
	defer cancel()

	var response rerankResponse
	err := c.postJSON(ctx, "/rerank", rerankRequest{
		Model:           rerankModel,
		Query:           query,
		Documents:       documents,
		TopN:            topK,
		ReturnDocuments: false,
	}, &response)
	if err != nil {
		return nil, err
	}

	ranked := make([]domain.RankedResult, 0, len(response.Results))
	for _, r := range response.Results {
		if r.Index < 0 || r.Index >= len(results) {
			return nil, fmt.Errorf("rerank: result index %d out of range", r.Index)
		}
		ranked = append(ranked, domain.RankedResult{
			FusedResult: results[r.Index],
			FinalScore:  r.RelevanceScore,
		})
	}
	return ranked, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("cohere rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			return fmt.Errorf("cohere rerank status: %s", resp.Status)
		}
		return fmt.Errorf("cohere rerank status: %s: %s", resp.Status, msg)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode rerank response: %w", err)
	}
	return nil
}
