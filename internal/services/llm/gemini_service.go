package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// GeminiService implements LLMProvider using the Google Gemini API.
type GeminiService struct {
	config *common.GeminiConfig
	client *genai.Client
	logger arbor.ILogger
}

// NewGeminiService creates a Gemini provider. The API key comes from config
// or GEMINI_API_KEY.
func NewGeminiService(ctx context.Context, config *common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API key is required (set GEMINI_API_KEY or gemini.api_key)", common.ErrConfigInvalid)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiService{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Name returns the provider name.
func (s *GeminiService) Name() string { return "gemini" }

// Close releases the client.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// GenerateContent sends one chat completion request.
func (s *GeminiService) GenerateContent(ctx context.Context, request *interfaces.CompletionRequest) (string, error) {
	if len(request.Messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty")
	}

	model := request.Model
	if model == "" {
		model = s.config.Model
	}
	temperature := request.Temperature
	if temperature <= 0 {
		temperature = s.config.Temperature
	}

	var contents []*genai.Content
	var systemText string
	for _, msg := range request.Messages {
		switch msg.Role {
		case "system":
			if systemText == "" {
				systemText = msg.Content
			}
		case "assistant":
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(temperature),
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}

	resp, err := s.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", common.ErrLLMUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: empty response from Gemini API", common.ErrLLMUnavailable)
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("%w: empty text in Gemini response", common.ErrLLMUnavailable)
	}
	return text, nil
}
