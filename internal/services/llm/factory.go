package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// NewProvider constructs the configured provider. When the LLM is disabled,
// the offline provider is returned so callers always hold a working
// implementation.
func NewProvider(ctx context.Context, config *common.Config, logger arbor.ILogger) (interfaces.LLMProvider, error) {
	if !config.LLM.Enabled {
		return NewOfflineProvider(logger), nil
	}

	switch config.LLM.DefaultProvider {
	case "claude":
		return NewClaudeService(&config.Claude, logger)
	case "gemini":
		return NewGeminiService(ctx, &config.Gemini, logger)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", common.ErrConfigInvalid, config.LLM.DefaultProvider)
	}
}
