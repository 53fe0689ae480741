package learning

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
	"github.com/ternarybob/peto/internal/interfaces"
)

// Scorer combines the pipeline's historical success rate with an optional LLM
// judgement into a [0,1] confidence per proposed action. The score is
// informational; callers decide thresholds.
type Scorer struct {
	pipeline       *Pipeline
	provider       interfaces.LLMProvider // Nil disables the LLM step
	events         interfaces.EventService
	baseConfidence float64
	logger         arbor.ILogger
}

// NewScorer creates a scorer. provider and events may be nil.
func NewScorer(pipeline *Pipeline, provider interfaces.LLMProvider, events interfaces.EventService, logger arbor.ILogger) *Scorer {
	return &Scorer{
		pipeline:       pipeline,
		provider:       provider,
		events:         events,
		baseConfidence: common.DefaultBaseConfidence,
		logger:         logger,
	}
}

// Compute scores the action. With no historical data the heuristic is the
// base confidence; otherwise the mean of success rate and base. When an LLM
// provider is wired, its judgement is averaged with the heuristic; provider
// failures fall back to the heuristic alone.
func (s *Scorer) Compute(ctx context.Context, action string, actionContext map[string]any) float64 {
	score := s.heuristic(action)

	if s.provider != nil {
		if judgement, err := s.judge(ctx, action, actionContext, score); err == nil {
			score = (score + judgement) / 2
		} else {
			s.logger.Warn().Err(err).Str("action", action).Msg("LLM judgement unavailable, using heuristic")
		}
	}

	score = Clamp(score)

	// Telemetry: every computation is recorded as a successful observation
	// of the score itself.
	s.pipeline.Record(action, true, score, actionContext)
	if s.events != nil {
		_ = s.events.Publish(ctx, interfaces.Event{
			Type:      interfaces.EventConfidenceScored,
			Timestamp: time.Now(),
			Payload: map[string]any{
				"action":     action,
				"score":      score,
				"context":    actionContext,
				"success":    true,
				"confidence": score,
			},
		})
	}
	return score
}

func (s *Scorer) heuristic(action string) float64 {
	if !s.pipeline.HasData(action) {
		return s.baseConfidence
	}
	return (s.pipeline.SuccessRate(action, DefaultWindow) + s.baseConfidence) / 2
}

// judge asks the provider for a single number in [0,1].
func (s *Scorer) judge(ctx context.Context, action string, actionContext map[string]any, heuristic float64) (float64, error) {
	prompt := fmt.Sprintf(
		"Rate the likelihood of success for the browser automation action %q given context %v. "+
			"The historical heuristic is %.2f. Respond with a single number between 0 and 1.",
		action, actionContext, heuristic)

	text, err := s.provider.GenerateContent(ctx, &interfaces.CompletionRequest{
		Messages:    []interfaces.Message{{Role: "user", Content: prompt}},
		Temperature: 0,
		MaxTokens:   8,
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrLLMUnavailable, err)
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unparseable judgement %q", common.ErrLLMUnavailable, text)
	}
	return Clamp(value), nil
}
