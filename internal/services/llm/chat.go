package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

// chatAdapter handles the externally-hosted general-purpose chat family and
// re-routes internally by vendor (Anthropic or OpenAI). Reference context is
// concatenated into a single user message; neither vendor gets a separate
// context slot here, which keeps the two wire shapes aligned.
type chatAdapter struct {
	claudeConfig *common.ClaudeConfig
	openaiConfig *common.OpenAIConfig
	kvStorage    interfaces.KeyValueStorage
	logger       arbor.ILogger

	mu           sync.Mutex
	claudeClient *anthropic.Client
	openaiClient *openai.Client
}

func newChatAdapter(claudeConfig *common.ClaudeConfig, openaiConfig *common.OpenAIConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *chatAdapter {
	return &chatAdapter{
		claudeConfig: claudeConfig,
		openaiConfig: openaiConfig,
		kvStorage:    kvStorage,
		logger:       logger,
	}
}

func (a *chatAdapter) complete(ctx context.Context, prompt, ragContext string, model Model, opts models.GenerationOptions) (string, error) {
	message := chatMessage(prompt, ragContext)

	switch model.Vendor() {
	case VendorAnthropic:
		return a.completeClaude(ctx, message, model, opts)
	case VendorOpenAI:
		return a.completeOpenAI(ctx, message, model, opts)
	default:
		return "", fmt.Errorf("%w: %s has no chat vendor", ErrUnsupportedModel, model.Alias())
	}
}

// chatMessage folds reference context into the single user message; the chat
// family has no separate context slot.
func chatMessage(prompt, ragContext string) string {
	if ragContext == "" {
		return prompt
	}
	return "Reference context:\n" + ragContext + "\n\n" + prompt
}

// dispatchModelID picks the provider-side model name: the resolved model's
// API id, unless the vendor config pins a concrete override.
func dispatchModelID(model Model, override string) string {
	if override != "" {
		return override
	}
	return model.APIModelID()
}

// getClaudeClient returns a Claude client, creating one if necessary
func (a *chatAdapter) getClaudeClient(ctx context.Context) (*anthropic.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.claudeClient != nil {
		return a.claudeClient, nil
	}

	apiKey, err := resolveAPIKey(ctx, a.kvStorage, "anthropic_api_key", "ANTHROPIC_API_KEY", a.claudeConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	a.claudeClient = &client
	return a.claudeClient, nil
}

// getOpenAIClient returns an OpenAI client, creating one if necessary
func (a *chatAdapter) getOpenAIClient(ctx context.Context) (*openai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.openaiClient != nil {
		return a.openaiClient, nil
	}

	apiKey, err := resolveAPIKey(ctx, a.kvStorage, "openai_api_key", "OPENAI_API_KEY", a.openaiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve OpenAI API key: %w", err)
	}

	a.openaiClient = openai.NewClient(apiKey)
	return a.openaiClient, nil
}

func (a *chatAdapter) completeClaude(ctx context.Context, message string, model Model, opts models.GenerationOptions) (string, error) {
	client, err := a.getClaudeClient(ctx)
	if err != nil {
		return "", err
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.claudeConfig.MaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(dispatchModelID(model, a.claudeConfig.Model)),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(message)),
		},
	}

	temp := opts.Temperature
	if temp <= 0 {
		temp = a.claudeConfig.Temperature
	}
	if temp > 0 {
		params.Temperature = anthropic.Float(float64(temp))
	}

	var resp *anthropic.Message
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.Messages.New(ctx, params)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		a.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Claude API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Claude API call failed: %w", apiErr)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from Claude API", ErrGenerationFailed)
	}

	return text.String(), nil
}

func (a *chatAdapter) completeOpenAI(ctx context.Context, message string, model Model, opts models.GenerationOptions) (string, error) {
	client, err := a.getOpenAIClient(ctx)
	if err != nil {
		return "", err
	}

	temp := opts.Temperature
	if temp <= 0 {
		temp = a.openaiConfig.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.openaiConfig.MaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       dispatchModelID(model, a.openaiConfig.Model),
		Temperature: temp,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	}

	var resp openai.ChatCompletionResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.CreateChatCompletion(ctx, req)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 2 * time.Second
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, 0)
		}

		a.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying OpenAI API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", apiErr)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no choices in OpenAI response", ErrGenerationFailed)
	}

	return resp.Choices[0].Message.Content, nil
}

// close drops the cached clients
func (a *chatAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.claudeClient = nil
	a.openaiClient = nil
}
