// Package captcha resolves CAPTCHA challenges through an external solver
// service or by prompting the operator.
package captcha

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

const notReadyMarker = "CAPCHA_NOT_READY"

// solverResponse is the service's uniform reply envelope. status=1 means the
// request field carries an id (submit) or the solution text (result).
type solverResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// ExternalSolver submits CAPTCHA images to a 2captcha-compatible HTTP service
// and polls for the solution.
type ExternalSolver struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	maxWait      time.Duration
	client       *http.Client
	logger       arbor.ILogger
}

// NewExternalSolver creates a solver client for the configured service.
func NewExternalSolver(config *common.CaptchaConfig, logger arbor.ILogger) (*ExternalSolver, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("%w: external captcha handler requires an API key", common.ErrConfigInvalid)
	}
	return &ExternalSolver{
		baseURL:      strings.TrimRight(config.SolverURL, "/"),
		apiKey:       config.APIKey,
		pollInterval: config.PollInterval(),
		maxWait:      config.MaxWait(),
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}, nil
}

// Solve submits the PNG image and polls the result endpoint until solved, a
// final error, or the wait budget elapses. Polling is interruptible through
// the context.
func (s *ExternalSolver) Solve(ctx context.Context, image []byte) (string, error) {
	id, err := s.submit(ctx, image)
	if err != nil {
		return "", err
	}

	s.logger.Info().Str("request_id", id).Msg("CAPTCHA submitted to external solver")

	deadline := time.Now().Add(s.maxWait)
	for {
		if err := common.SleepContext(ctx, s.pollInterval); err != nil {
			return "", err
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: solver did not answer within %s", common.ErrSolverUnavailable, s.maxWait)
		}

		solution, ready, err := s.poll(ctx, id)
		if err != nil {
			return "", err
		}
		if ready {
			s.logger.Info().Str("request_id", id).Msg("CAPTCHA solved by external solver")
			return solution, nil
		}
	}
}

// submit posts the base64 image and returns the issued request id.
func (s *ExternalSolver) submit(ctx context.Context, image []byte) (string, error) {
	form := url.Values{
		"key":    {s.apiKey},
		"method": {"base64"},
		"body":   {base64.StdEncoding.EncodeToString(image)},
		"json":   {"1"},
	}

	resp, err := s.postForm(ctx, s.baseURL+"/in.php", form)
	if err != nil {
		return "", err
	}
	if resp.Status != 1 {
		return "", fmt.Errorf("%w: submit rejected: %s", common.ErrSolverUnavailable, resp.Request)
	}
	return resp.Request, nil
}

// poll checks the result endpoint once. ready=false means keep polling.
func (s *ExternalSolver) poll(ctx context.Context, id string) (string, bool, error) {
	form := url.Values{
		"key":    {s.apiKey},
		"action": {"get"},
		"id":     {id},
		"json":   {"1"},
	}

	resp, err := s.postForm(ctx, s.baseURL+"/res.php", form)
	if err != nil {
		return "", false, err
	}
	if resp.Status == 1 {
		return resp.Request, true, nil
	}
	if resp.Request == notReadyMarker {
		return "", false, nil
	}
	return "", false, fmt.Errorf("%w: solver reported: %s", common.ErrSolverUnavailable, resp.Request)
}

func (s *ExternalSolver) postForm(ctx context.Context, endpoint string, form url.Values) (*solverResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: building solver request: %v", common.ErrSolverUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSolverUnavailable, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading solver response: %v", common.ErrSolverUnavailable, err)
	}

	var resp solverResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: unparseable solver response: %v", common.ErrSolverUnavailable, err)
	}
	return &resp, nil
}
