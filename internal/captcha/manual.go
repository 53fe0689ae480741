package captcha

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/interfaces"
)

// ManualSolver saves the CAPTCHA image under the data directory and asks the
// operator to type the solution. The image file is removed best-effort once
// input arrives.
type ManualSolver struct {
	dataDir  string
	prompter interfaces.Prompter
	logger   arbor.ILogger
}

// NewManualSolver creates the operator-driven solver.
func NewManualSolver(dataDir string, prompter interfaces.Prompter, logger arbor.ILogger) *ManualSolver {
	return &ManualSolver{
		dataDir:  dataDir,
		prompter: prompter,
		logger:   logger,
	}
}

// Solve writes the image to data_dir/temp_captcha_<uuid>.png and prompts.
func (s *ManualSolver) Solve(ctx context.Context, image []byte) (string, error) {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}

	path := filepath.Join(s.dataDir, fmt.Sprintf("temp_captcha_%s.png", uuid.New().String()))
	if err := os.WriteFile(path, image, 0644); err != nil {
		return "", fmt.Errorf("saving captcha image: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove temp captcha image")
		}
	}()

	s.logger.Info().Str("path", path).Msg("Captcha encountered, manual solve needed.")

	solution, err := s.prompter.Prompt(fmt.Sprintf("CAPTCHA saved to %s - enter solution: ", path))
	if err != nil {
		return "", fmt.Errorf("reading operator input: %w", err)
	}
	return solution, nil
}
