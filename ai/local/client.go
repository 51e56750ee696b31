// Package local provides a client for local OpenAI-compatible inference
// servers (Ollama, LocalAI). Local servers run on loopback addresses, so
// this client deliberately uses a plain http.Client instead of the
// SSRF-safer client the cloud providers use.
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ledgewood/folio/ai/openrouter"
	"github.com/ledgewood/folio/errors"
)

const (
	// DefaultBaseURL is the standard Ollama endpoint.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultTimeoutSeconds bounds a single completion request. Local
	// models on modest hardware can be slow; generation requests are
	// long-running by nature.
	DefaultTimeoutSeconds = 300
)

// Config holds local inference client configuration.
type Config struct {
	BaseURL        string // server endpoint ("" = DefaultBaseURL)
	Model          string // e.g. "mistral", "qwen2.5-coder:7b"
	TimeoutSeconds int    // request timeout (0 = DefaultTimeoutSeconds)
	ContextSize    *int   // context window size (nil = model default)
	Logger         *zap.SugaredLogger
}

// Client talks to a local OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL     string
	model       string
	contextSize int
	httpClient  *http.Client
	logger      *zap.SugaredLogger
}

// NewClient creates a local inference client.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds
	}
	contextSize := 0
	if cfg.ContextSize != nil {
		contextSize = *cfg.ContextSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		model:       cfg.Model,
		contextSize: contextSize,
		httpClient:  &http.Client{Timeout: time.Duration(timeout) * time.Second},
		logger:      logger,
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string { return c.model }

// completionRequest matches the OpenAI chat-completions format; Ollama and
// LocalAI both accept it. Options carries Ollama-specific knobs.
type completionRequest struct {
	Model    string          `json:"model"`
	Messages []message       `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *requestOptions `json:"options,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type requestOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"` // Ollama's max_tokens
	NumCtx      int     `json:"num_ctx,omitempty"`     // context window size
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// Chat sends a generation request to the local server.
func (c *Client) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	model := c.model
	if req.Model != nil {
		model = *req.Model
	}

	temperature := 0.2
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	maxTokens := 4096
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	var messages []message
	if req.SystemPrompt != "" {
		messages = append(messages, message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, message{Role: "user", Content: req.UserPrompt})

	body, err := json.Marshal(completionRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
		Options: &requestOptions{
			Temperature: temperature,
			NumPredict:  maxTokens,
			NumCtx:      c.contextSize,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	c.logger.Debugw("local inference request",
		"model", model,
		"endpoint", c.baseURL,
		"prompt_length", len(req.UserPrompt),
	)

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v1/chat/completions", bytes.NewBuffer(body))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrapf(err, "local inference server unreachable at %s", c.baseURL)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("local inference request failed with status %d: %s",
			resp.StatusCode, string(respBody))
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("no response choices from local inference server")
	}

	out := &openrouter.ChatResponse{
		Content: strings.TrimSpace(completion.Choices[0].Message.Content),
	}
	// Local servers do not always report token usage.
	if completion.Usage != nil {
		out.Usage = openrouter.Usage{
			PromptTokens:     completion.Usage.PromptTokens,
			CompletionTokens: completion.Usage.CompletionTokens,
			TotalTokens:      completion.Usage.TotalTokens,
		}
	}
	return out, nil
}

// IsAvailable probes the server's model listing endpoint. Used by the auto
// provider selection; a cheap GET rather than a completion request.
func (c *Client) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/v1/models", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

// SetHTTPClient overrides the HTTP client. Only use this in tests.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
