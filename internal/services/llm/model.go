package llm

import (
	"fmt"
	"strings"
)

// Family identifies a group of models sharing one request/response shape and
// one adapter implementation.
type Family string

// Backend families
const (
	// FamilyGemini covers the lite/pro members of the Gemini family.
	FamilyGemini Family = "gemini"
	// FamilyChat covers the externally-hosted general-purpose chat models;
	// its adapter re-routes internally by vendor.
	FamilyChat Family = "chat"
)

// Vendor identifies the concrete provider behind a chat-family model
type Vendor string

// Chat family vendors
const (
	VendorAnthropic Vendor = "anthropic"
	VendorOpenAI    Vendor = "openai"
)

// Model is the closed set of supported generation backends. Each member
// carries its family tag so routing never falls back to string matching at
// dispatch time.
type Model int

// Supported models
const (
	ModelGeminiFlash Model = iota
	ModelGeminiPro
	ModelClaudeSonnet
	ModelGPT4o
)

// Alias returns the public model identifier
func (m Model) Alias() string {
	switch m {
	case ModelGeminiFlash:
		return "gemini-flash"
	case ModelGeminiPro:
		return "gemini-pro"
	case ModelClaudeSonnet:
		return "claude-sonnet"
	case ModelGPT4o:
		return "gpt-4o"
	default:
		return "unknown"
	}
}

// Family returns the backend family handling this model
func (m Model) Family() Family {
	switch m {
	case ModelGeminiFlash, ModelGeminiPro:
		return FamilyGemini
	default:
		return FamilyChat
	}
}

// Vendor returns the concrete provider for chat-family models
func (m Model) Vendor() Vendor {
	switch m {
	case ModelClaudeSonnet:
		return VendorAnthropic
	case ModelGPT4o:
		return VendorOpenAI
	default:
		return ""
	}
}

// ProTier reports whether the model is billed at the heavier analytical rate
func (m Model) ProTier() bool {
	return m == ModelGeminiPro
}

// APIModelID returns the provider-side model name dispatched to the API
func (m Model) APIModelID() string {
	switch m {
	case ModelGeminiFlash:
		return "gemini-2.0-flash"
	case ModelGeminiPro:
		return "gemini-2.5-pro"
	case ModelClaudeSonnet:
		return "claude-sonnet-4-20250514"
	case ModelGPT4o:
		return "gpt-4o"
	default:
		return ""
	}
}

// ResolveModel maps a model identifier string to a Model. Matching is
// case-insensitive and tolerates provider prefixes ("gemini/gemini-flash",
// "anthropic/claude-sonnet"). Unknown identifiers return ErrUnsupportedModel.
func ResolveModel(identifier string) (Model, error) {
	name := strings.ToLower(strings.TrimSpace(identifier))

	for _, prefix := range []string{"gemini/", "google/", "claude/", "anthropic/", "openai/"} {
		name = strings.TrimPrefix(name, prefix)
	}

	switch name {
	case "gemini-flash":
		return ModelGeminiFlash, nil
	case "gemini-pro":
		return ModelGeminiPro, nil
	case "claude-sonnet":
		return ModelClaudeSonnet, nil
	case "gpt-4o":
		return ModelGPT4o, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedModel, identifier)
	}
}

// SupportedModels returns the aliases of every routable model
func SupportedModels() []string {
	return []string{
		ModelGeminiFlash.Alias(),
		ModelGeminiPro.Alias(),
		ModelClaudeSonnet.Alias(),
		ModelGPT4o.Alias(),
	}
}
