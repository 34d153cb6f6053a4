package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/luminahq/insight-engine/internal/interfaces"
)

// resolveAPIKey resolves a provider API key with priority:
// environment variable -> KV store -> config fallback.
func resolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name, envVar, configFallback string) (string, error) {
	if envValue := os.Getenv(envVar); envValue != "" {
		return envValue, nil
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key %q not found in environment, KV store, or config", name)
}
