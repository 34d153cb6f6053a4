package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/luminahq/insight-engine/internal/common"
	"github.com/luminahq/insight-engine/internal/interfaces"
	"github.com/luminahq/insight-engine/internal/models"
)

// adapter is one backend family's dispatch surface
type adapter interface {
	complete(ctx context.Context, prompt, ragContext string, model Model, opts models.GenerationOptions) (string, error)
	close()
}

// Router maps a requested model to its backend family adapter and enforces
// the family's call ceiling and request rate. It returns exactly one
// completion string per call; never partial or streamed output.
type Router struct {
	defaultModel string
	logger       arbor.ILogger

	gemini adapter
	chat   adapter

	geminiTimeout time.Duration
	chatTimeout   time.Duration
	geminiLimiter *rate.Limiter
	chatLimiter   *rate.Limiter
}

// NewRouter creates a router wired to both backend families
func NewRouter(config *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) *Router {
	geminiInterval := common.ParseDurationOr(config.Gemini.RateLimit, 4*time.Second)
	chatInterval := common.ParseDurationOr(config.LLM.RateLimit, time.Second)

	return &Router{
		defaultModel:  config.LLM.DefaultModel,
		logger:        logger,
		gemini:        newGeminiAdapter(&config.Gemini, kvStorage, logger),
		chat:          newChatAdapter(&config.Claude, &config.OpenAI, kvStorage, logger),
		geminiTimeout: common.ParseDurationOr(config.Gemini.Timeout, 120*time.Second),
		chatTimeout:   common.ParseDurationOr(config.LLM.ChatTimeout, 60*time.Second),
		geminiLimiter: rate.NewLimiter(rate.Every(geminiInterval), 1),
		chatLimiter:   rate.NewLimiter(rate.Every(chatInterval), 1),
	}
}

// Generate resolves the requested model, applies the family timeout and rate
// limit, and dispatches the prompt. RAG context handling is family-specific:
// the Gemini family carries it in a system-instruction slot, the chat family
// prepends it to the user message.
func (r *Router) Generate(ctx context.Context, prompt, ragContext string, opts models.GenerationOptions) (string, error) {
	identifier := opts.Model
	if identifier == "" {
		identifier = r.defaultModel
	}

	model, err := ResolveModel(identifier)
	if err != nil {
		return "", err
	}

	var backend adapter
	var limiter *rate.Limiter
	var timeout time.Duration
	switch model.Family() {
	case FamilyGemini:
		backend, limiter, timeout = r.gemini, r.geminiLimiter, r.geminiTimeout
	default:
		backend, limiter, timeout = r.chat, r.chatLimiter, r.chatTimeout
	}

	if err := limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	r.logger.Debug().
		Str("model", model.Alias()).
		Str("family", string(model.Family())).
		Bool("rag", ragContext != "").
		Msg("Dispatching generation")

	text, err := backend.complete(callCtx, prompt, ragContext, model, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("%w: %s exceeded %s ceiling", ErrGenerationTimeout, model.Alias(), timeout)
		}
		if errors.Is(err, ErrGenerationFailed) || errors.Is(err, ErrUnsupportedModel) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	r.logger.Debug().
		Str("model", model.Alias()).
		Dur("duration", time.Since(start)).
		Int("length", len(text)).
		Msg("Generation completed")

	return text, nil
}

// Close drops all cached provider clients
func (r *Router) Close() error {
	r.gemini.close()
	r.chat.close()
	return nil
}
