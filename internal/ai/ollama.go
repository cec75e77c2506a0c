package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

const draftInstructions = "Return a short summary, title, suggested solutions, one-word categories, and a suggested assignee of the input in JSON format. " +
	"Summary should not be longer than the original input. Use the keys summary, title, suggestedSolutions, categories and suggestedAssignee. " +
	"categories is an array of strings with at most 5 elements. suggestedAssignee is a department or role matching the categories. " +
	"Summary can have at most 220 words, title at most 10 words, suggested solutions at most 220 words."

const mergeInstructions = "Analyze the following support ticket drafts and identify groups of IDs that are highly similar and could be merged into a single ticket. " +
	"Return only a JSON array of arrays, where each inner array contains the IDs of drafts that should be merged. If no similarities are found, return []."

var jsonFormat = json.RawMessage(`"json"`)

// OllamaClient asks an Ollama server for drafts and merge groups.
type OllamaClient struct {
	client     *api.Client
	model      string
	httpClient *http.Client
}

// OllamaOption configures the client.
type OllamaOption func(*OllamaClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) OllamaOption {
	return func(client *OllamaClient) {
		client.httpClient = c
	}
}

// NewOllamaClient creates a client for the Ollama server at baseURL, e.g.
// http://localhost:11434.
func NewOllamaClient(baseURL, model string, timeout time.Duration, opts ...OllamaOption) (*OllamaClient, error) {
	base, err := url.Parse(strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/api/chat"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	c := &OllamaClient{
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = api.NewClient(base, c.httpClient)
	return c, nil
}

// Draft asks the model for a draft suggestion.
func (c *OllamaClient) Draft(ctx context.Context, text string) (*Suggestion, error) {
	content, err := c.chat(ctx, draftInstructions, text)
	if err != nil {
		return nil, fmt.Errorf("draft: %w", err)
	}
	return ParseSuggestion(content)
}

// Recommend asks the model which drafts describe the same issue.
func (c *OllamaClient) Recommend(ctx context.Context, drafts []DraftDigest) ([][]string, error) {
	if len(drafts) < 2 {
		return [][]string{}, nil
	}
	lines := make([]string, 0, len(drafts))
	for _, d := range drafts {
		lines = append(lines, fmt.Sprintf("ID %s: Title: %s. Summary: %s", d.ID, d.Title, d.Summary))
	}
	content, err := c.chat(ctx, mergeInstructions, strings.Join(lines, "\n\n"))
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	return ParseGroups(content)
}

func (c *OllamaClient) chat(ctx context.Context, system, user string) (string, error) {
	stream := false
	req := &api.ChatRequest{
		Model: c.model,
		Messages: []api.Message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Stream: &stream,
		Format: jsonFormat,
	}

	var content strings.Builder
	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return "", fmt.Errorf("model %q not found on server: %w", c.model, err)
		}
		return "", fmt.Errorf("chat: %w", err)
	}
	if content.Len() == 0 {
		return "", fmt.Errorf("%w: empty message", ErrMalformedResponse)
	}
	return content.String(), nil
}
