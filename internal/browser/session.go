// Package browser drives Chrome over the DevTools protocol and implements
// the Page contract the agents operate on.
package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/common"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Session owns the browser allocator and the root browser context. One
// session hosts one or more pages; closing the session closes the browser.
type Session struct {
	config *common.BrowserConfig
	logger arbor.ILogger

	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
}

// NewSession launches Chrome (or attaches to a running instance when
// attach_existing is set) and verifies it answers.
func NewSession(config *common.BrowserConfig, logger arbor.ILogger) (*Session, error) {
	s := &Session{config: config, logger: logger}

	var allocatorCtx context.Context
	if config.AttachExisting {
		url := fmt.Sprintf("http://127.0.0.1:%d", config.CDPPort)
		allocatorCtx, s.allocatorCancel = chromedp.NewRemoteAllocator(context.Background(), url)
		logger.Info().Str("url", url).Msg("Attaching to running browser")
	} else {
		allocatorCtx, s.allocatorCancel = chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	}

	s.browserCtx, s.browserCancel = chromedp.NewContext(allocatorCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug().Msgf("chromedp: "+format, args...)
		}),
	)

	startupCtx, cancel := context.WithTimeout(s.browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startupCtx, chromedp.Navigate("about:blank")); err != nil {
		s.Close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	logger.Info().
		Bool("headless", config.Headless).
		Int("viewport_width", config.ViewportWidth).
		Int("viewport_height", config.ViewportHeight).
		Msg("Browser session started")
	return s, nil
}

// allocatorOptions builds the launch flags. The stealth set keeps automation
// markers out of the rendered environment.
func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	userAgent := s.config.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.UserAgent(userAgent),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.Flag("disable-popup-blocking", true),

		chromedp.WindowSize(s.config.ViewportWidth, s.config.ViewportHeight),
	}

	if s.config.CDPPort > 0 {
		opts = append(opts, chromedp.Flag("remote-debugging-port", fmt.Sprintf("%d", s.config.CDPPort)))
	}
	if s.config.DataDir != "" {
		opts = append(opts, chromedp.UserDataDir(filepath.Join(s.config.DataDir, "cookies")))
	}
	if s.config.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}

	return opts
}

// NewPage opens a tab within the session.
func (s *Session) NewPage() (*Page, error) {
	return newPage(s.browserCtx, s.logger)
}

// Close shuts the browser down.
func (s *Session) Close() error {
	if s.browserCancel != nil {
		s.browserCancel()
	}
	if s.allocatorCancel != nil {
		s.allocatorCancel()
	}
	s.logger.Info().Msg("Browser session closed")
	return nil
}
