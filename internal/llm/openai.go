package llm

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pitwall-ai/pitwall/internal/textutil"
)

// DefaultChatModel is the default generation model. Gemini models are
// reachable through Google's OpenAI-compatible endpoint, which is the
// deployment this assistant was built for.
const DefaultChatModel = "gemini-2.0-flash"

// OpenAIClient implements LLM against any OpenAI-compatible chat API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// OpenAIOption is a functional option for configuring OpenAIClient.
type OpenAIOption func(*openAIConfig)

type openAIConfig struct {
	baseURL string
	model   string
}

// WithBaseURL points the client at an alternative OpenAI-compatible endpoint.
func WithBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) {
		c.baseURL = url
	}
}

// WithChatModel sets the generation model.
func WithChatModel(model string) OpenAIOption {
	return func(c *openAIConfig) {
		c.model = model
	}
}

// NewOpenAIClient creates a chat client for an OpenAI-compatible API.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	cfg := openAIConfig{model: DefaultChatModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	clientCfg := openai.DefaultConfig(textutil.Sanitize(apiKey))
	if cfg.baseURL != "" {
		clientCfg.BaseURL = cfg.baseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.model,
	}
}

func (c *OpenAIClient) buildRequest(prompt string, opts GenerateOptions, stream bool) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if opts.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: textutil.Normalize(opts.SystemPrompt),
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: textutil.Normalize(prompt),
	})

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		Stream:      stream,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	return req
}

// Generate sends a prompt and returns the complete response text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(prompt, opts, false))
	if err != nil {
		return "", wrapAPIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion response", ErrProvider)
	}

	return textutil.Normalize(resp.Choices[0].Message.Content), nil
}

// GenerateStream sends a prompt and streams response chunks.
func (c *OpenAIClient) GenerateStream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan StreamChunk, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.buildRequest(prompt, opts, true))
	if err != nil {
		return nil, wrapAPIError(err)
	}

	chunks := make(chan StreamChunk)

	go func() {
		defer close(chunks)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				select {
				case chunks <- StreamChunk{Done: true}:
				case <-ctx.Done():
				}
				return
			}
			if err != nil {
				select {
				case chunks <- StreamChunk{Error: wrapAPIError(err), Done: true}:
				case <-ctx.Done():
				}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case chunks <- StreamChunk{Token: resp.Choices[0].Delta.Content}:
			}
		}
	}()

	return chunks, nil
}

func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: status %d: %s", ErrProvider, apiErr.HTTPStatusCode, apiErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrProvider, err)
}

// Ensure OpenAIClient implements LLM.
var _ LLM = (*OpenAIClient)(nil)
