package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultOpenAIModel is the default model for the OpenAI-compatible client.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIConfig holds configuration for the OpenAI-compatible client.
type OpenAIConfig struct {
	// APIKey authenticates against the API. Falls back to the
	// OPENAI_API_KEY environment variable when empty.
	APIKey string

	// BaseURL overrides the API endpoint, for OpenAI-compatible
	// providers.
	BaseURL string

	// Model is the default chat model (default: gpt-4o-mini).
	Model string
}

// OpenAIClient implements the LLM interface against the OpenAI chat
// completions API (or any compatible endpoint). It serves the direct
// generation path, so a hosted model can be compared against the local
// RAG model.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient creates a new OpenAI-compatible generation client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	var opts []option.RequestOption
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}
}

// Generate sends a prompt through the chat completions API and returns
// the response with its token usage.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (Result, error) {
	model := opts.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
	}
	if opts.SystemPrompt != "" {
		params.Messages = append(params.Messages, openai.SystemMessage(opts.SystemPrompt))
	}
	params.Messages = append(params.Messages, openai.UserMessage(prompt))
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, fmt.Errorf("chat completion returned no choices")
	}

	return Result{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		Model:        resp.Model,
	}, nil
}

// ModelName returns the client's default model.
func (c *OpenAIClient) ModelName() string {
	return c.model
}

// Ensure OpenAIClient implements LLM interface.
var _ LLM = (*OpenAIClient)(nil)
