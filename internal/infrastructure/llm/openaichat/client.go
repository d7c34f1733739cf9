package openaichat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/studymate/docqa/internal/core/domain"
	"github.com/studymate/docqa/internal/core/ports"
	"github.com/studymate/docqa/internal/infrastructure/resilience"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 8192
)

// Client talks to an OpenAI-compatible chat-completions endpoint (Groq,
// OpenAI, vLLM and the like all speak this dialect).
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	exec       *resilience.Executor
}

func New(baseURL, apiKey, model string, exec *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		exec:       exec,
	}
}

var _ ports.TextGenerator = (*Client)(nil)

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	TopP           float64         `json:"top_p"`
	Stream         bool            `json:"stream"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

func (c *Client) Generate(
	ctx context.Context,
	prompt string,
	history []domain.ConversationTurn,
	language string,
	opts domain.GenOptions,
) (string, error) {
	messages := make([]message, 0, len(history)+2)
	if language != "" && language != "en" {
		messages = append(messages, message{Role: "system", Content: "You must respond in " + language + "."})
	}
	for _, turn := range history {
		role := turn.Role
		if role != "user" && role != "assistant" && role != "system" {
			role = "user"
		}
		messages = append(messages, message{Role: role, Content: turn.Content})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	return c.complete(ctx, "llm.generate", chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperatureOrDefault(opts.Temperature),
		MaxTokens:   maxTokensOrDefault(opts.MaxTokens),
		TopP:        1,
	})
}

func (c *Client) GenerateJSON(ctx context.Context, prompt string, opts domain.GenOptions) (string, error) {
	return c.complete(ctx, "llm.generate_json", chatRequest{
		Model:          c.model,
		Messages:       []message{{Role: "user", Content: prompt}},
		Temperature:    temperatureOrDefault(opts.Temperature),
		MaxTokens:      maxTokensOrDefault(opts.MaxTokens),
		TopP:           1,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
}

func (c *Client) complete(ctx context.Context, operation string, request chatRequest) (string, error) {
	var response chatResponse
	err := c.exec.Execute(ctx, operation, func(ctx context.Context) error {
		return c.postJSON(ctx, "/chat/completions", request, &response, operation)
	}, classifyProviderError)
	if err != nil {
		return "", wrapTemporaryIfNeeded(operation, err)
	}
	if len(response.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func temperatureOrDefault(t float64) float64 {
	if t <= 0 {
		return defaultTemperature
	}
	return t
}

func maxTokensOrDefault(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
