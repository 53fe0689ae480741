package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// OfflineProvider is the null implementation used when no API key is
// configured and by unit tests. It never reaches the network.
type OfflineProvider struct {
	logger arbor.ILogger
}

// NewOfflineProvider creates the null provider.
func NewOfflineProvider(logger arbor.ILogger) *OfflineProvider {
	return &OfflineProvider{logger: logger}
}

// Name returns the provider name.
func (p *OfflineProvider) Name() string { return "offline" }

// Close is a no-op.
func (p *OfflineProvider) Close() error { return nil }

// GenerateContent always reports the provider as unavailable so callers
// exercise their fallback paths.
func (p *OfflineProvider) GenerateContent(ctx context.Context, request *interfaces.CompletionRequest) (string, error) {
	p.logger.Debug().Int("message_count", len(request.Messages)).Msg("Offline LLM provider invoked")
	return "", fmt.Errorf("%w: offline provider has no model", common.ErrLLMUnavailable)
}
