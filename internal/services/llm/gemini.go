package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

// geminiAdapter handles the Gemini backend family (flash and pro tiers).
// Reference context rides in the request's system-instruction slot rather
// than being concatenated into the user prompt.
type geminiAdapter struct {
	config    *common.GeminiConfig
	kvStorage interfaces.KeyValueStorage
	logger    arbor.ILogger

	mu     sync.Mutex
	client *genai.Client
}

func newGeminiAdapter(config *common.GeminiConfig, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *geminiAdapter {
	return &geminiAdapter{
		config:    config,
		kvStorage: kvStorage,
		logger:    logger,
	}
}

// getClient returns a Gemini client, creating one if necessary
func (a *geminiAdapter) getClient(ctx context.Context) (*genai.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	apiKey, err := resolveAPIKey(ctx, a.kvStorage, "gemini_api_key", "GEMINI_API_KEY", a.config.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	a.client = client
	return client, nil
}

func (a *geminiAdapter) complete(ctx context.Context, prompt, ragContext string, model Model, opts models.GenerationOptions) (string, error) {
	client, err := a.getClient(ctx)
	if err != nil {
		return "", err
	}

	temp := opts.Temperature
	if temp <= 0 {
		temp = a.config.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = a.config.MaxTokens
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temp),
		MaxOutputTokens: int32(maxTokens),
	}

	if ragContext != "" {
		config.SystemInstruction = genai.NewContentFromText(ragInstruction(ragContext), genai.RoleUser)
	}

	contents := genai.Text(prompt)

	// Make API call with rate-limit-aware retry
	var resp *genai.GenerateContentResponse
	var apiErr error
	retryConfig := NewDefaultRetryConfig()

	for attempt := 0; attempt <= retryConfig.MaxRetries; attempt++ {
		resp, apiErr = client.Models.GenerateContent(ctx, model.APIModelID(), contents, config)
		if apiErr == nil {
			break
		}

		if attempt == retryConfig.MaxRetries {
			break
		}

		var backoff time.Duration
		if IsRateLimitError(apiErr) {
			backoff = retryConfig.CalculateBackoff(attempt, ExtractRetryDelay(apiErr))
		} else {
			backoff = time.Duration(attempt+1) * 2 * time.Second
		}

		a.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Err(apiErr).
			Msg("Retrying Gemini API call")

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if apiErr != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", apiErr)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini API", ErrGenerationFailed)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty text in Gemini response", ErrGenerationFailed)
	}

	return text, nil
}

// ragInstruction wraps reference context for the system-instruction slot
func ragInstruction(ragContext string) string {
	return "Use the following reference context when analyzing:\n\n" + ragContext
}

// close drops the cached client
func (a *geminiAdapter) close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.client = nil
}
