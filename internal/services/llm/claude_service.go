// Package llm provides content-generation providers for cover letters, CV
// enrichment and confidence judgements.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// ClaudeService implements LLMProvider using the Anthropic Claude API.
type ClaudeService struct {
	config  *common.ClaudeConfig
	client  anthropic.Client
	timeout time.Duration
	logger  arbor.ILogger
}

// NewClaudeService creates a Claude provider. The API key comes from config
// or ANTHROPIC_API_KEY.
func NewClaudeService(config *common.ClaudeConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: Anthropic API key is required (set ANTHROPIC_API_KEY or claude.api_key)", common.ErrConfigInvalid)
	}

	timeout, err := time.ParseDuration(config.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid claude timeout %q", common.ErrConfigInvalid, config.Timeout)
	}

	return &ClaudeService{
		config:  config,
		client:  anthropic.NewClient(option.WithAPIKey(config.APIKey)),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Name returns the provider name.
func (s *ClaudeService) Name() string { return "claude" }

// Close releases the client.
func (s *ClaudeService) Close() error { return nil }

// GenerateContent sends one chat completion request, retrying transient
// failures with exponential backoff.
func (s *ClaudeService) GenerateContent(ctx context.Context, request *interfaces.CompletionRequest) (string, error) {
	messages, systemText, err := convertMessages(request.Messages)
	if err != nil {
		return "", err
	}

	model := request.Model
	if model == "" {
		model = s.config.Model
	}
	maxTokens := request.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.config.MaxTokens
	}
	temperature := request.Temperature
	if temperature <= 0 {
		temperature = s.config.Temperature
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(float64(temperature))
	}
	if systemText != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemText}}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var resp *anthropic.Message
	operation := func() error {
		var apiErr error
		resp, apiErr = s.client.Messages.New(callCtx, params)
		if apiErr != nil {
			s.logger.Warn().Err(apiErr).Str("model", model).Msg("Claude API call failed, retrying")
		}
		return apiErr
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), callCtx)
	if err := backoff.Retry(operation, policy); err != nil {
		return "", fmt.Errorf("%w: claude: %v", common.ErrLLMUnavailable, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("%w: empty response from Claude API", common.ErrLLMUnavailable)
	}
	return text.String(), nil
}

// convertMessages maps provider-agnostic messages to Claude message params,
// extracting the first system message for the System parameter.
func convertMessages(messages []interfaces.Message) ([]anthropic.MessageParam, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	out := make([]anthropic.MessageParam, 0, len(messages))
	var systemText string
	hasUser := false
	for _, msg := range messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			hasUser = true
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	if !hasUser {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}
	return out, systemText, nil
}
