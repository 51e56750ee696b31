// Package ai defines the generation-client contract the report engine
// consumes and the factory that builds provider-specific clients from
// configuration. Concrete clients live in the openrouter, anthropic, and
// local subpackages; they all speak the shared Chat contract from the
// openrouter package and are wrapped here behind the text-generation
// interface.
package ai

import (
	"context"

	"github.com/ledgewood/folio/ai/openrouter"
)

// TextRequest is a single text-generation request. Model optionally
// overrides the client's configured default.
type TextRequest struct {
	Prompt string
	System string
	Model  string
}

// Client is the generation contract: one prompt in, one string out.
// Errors propagate unchanged; no retry policy exists at this level beyond
// what the underlying transport client implements.
type Client interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)

	// Provider identifies the backing provider for report metadata.
	Provider() Provider

	// Model is the client's default model identifier.
	Model() string
}

// ChatClient is the low-level contract every provider package implements.
type ChatClient interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

// textClient adapts a ChatClient to the Client contract.
type textClient struct {
	chat     ChatClient
	provider Provider
	model    string
}

func (c *textClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	chatReq := openrouter.ChatRequest{
		SystemPrompt: req.System,
		UserPrompt:   req.Prompt,
	}
	if req.Model != "" {
		model := req.Model
		chatReq.Model = &model
	}

	resp, err := c.chat.Chat(ctx, chatReq)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *textClient) Provider() Provider { return c.provider }

func (c *textClient) Model() string { return c.model }
