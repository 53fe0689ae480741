package common

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration. It is constructed once at
// startup and treated as immutable afterwards.
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Browser     BrowserConfig    `toml:"browser"`
	Platform    PlatformConfig   `toml:"platform"`
	System      SystemConfig     `toml:"system"`
	Telemetry   TelemetryConfig  `toml:"telemetry"`
	Captcha     CaptchaConfig    `toml:"captcha"`
	LLM         LLMConfig        `toml:"llm"`
	Claude      ClaudeConfig     `toml:"claude"`
	Gemini      GeminiConfig     `toml:"gemini"`
	CV          CVConfig         `toml:"cv"`
	Profiles    ProfilesConfig   `toml:"profiles"`
	Tracker     TrackerConfig    `toml:"tracker"`
	Tasks       TasksConfig      `toml:"tasks"`
	Logging     LoggingConfig    `toml:"logging"`
	Schedules   []ScheduleConfig `toml:"schedule"` // Optional recurring searches
}

// BrowserConfig controls the chromedp session.
type BrowserConfig struct {
	Type           string `toml:"type"` // "chrome", "chromium", "edge", "firefox", "webkit"
	Headless       bool   `toml:"headless"`
	CDPPort        int    `toml:"cdp_port"`
	ViewportWidth  int    `toml:"viewport_width"`
	ViewportHeight int    `toml:"viewport_height"`
	UserAgent      string `toml:"user_agent"`
	AttachExisting bool   `toml:"attach_existing"` // Attach to a running browser over CDP instead of launching
	DataDir        string `toml:"data_dir"`
}

// PlatformConfig groups per-platform settings.
type PlatformConfig struct {
	LinkedIn LinkedInConfig `toml:"linkedin"`
}

// LinkedInConfig contains LinkedIn-specific settings and credentials.
// Email and password may also arrive via PETO_LINKEDIN_EMAIL / PETO_LINKEDIN_PASSWORD.
type LinkedInConfig struct {
	Email          string  `toml:"email" env:"PETO_LINKEDIN_EMAIL"`
	Password       string  `toml:"password" env:"PETO_LINKEDIN_PASSWORD"`
	DefaultTimeout int     `toml:"default_timeout"` // Element wait timeout in milliseconds
	MinDelaySec    float64 `toml:"min_delay"`       // Human pacing lower bound in seconds
	MaxDelaySec    float64 `toml:"max_delay"`       // Human pacing upper bound in seconds
	MaxRetries     int     `toml:"max_retries"`
	MaxJobs        int     `toml:"max_jobs"` // Listings processed per search
}

// SystemConfig contains cross-cutting runtime settings.
type SystemConfig struct {
	DebugMode     bool    `toml:"debug_mode"`
	LogLevel      string  `toml:"log_level"` // "INFO" or "DEBUG"
	DataDir       string  `toml:"data_dir"`
	MaxRetries    int     `toml:"max_retries"`
	RetryDelaySec float64 `toml:"retry_delay"` // Base retry delay in seconds
}

// TelemetryConfig controls event persistence.
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	StoragePath string `toml:"storage_path"`
}

// CaptchaConfig selects the CAPTCHA strategy.
type CaptchaConfig struct {
	Handler        string  `toml:"handler"` // "manual" or "external"
	APIKey         string  `toml:"api_key" env:"PETO_CAPTCHA_API_KEY"`
	SolverURL      string  `toml:"solver_url"`
	PollIntervalMS int     `toml:"poll_interval"` // Solver poll interval in milliseconds
	MaxWaitSec     float64 `toml:"max_wait"`      // Solver overall wait in seconds
}

// LLMConfig selects the default content-generation provider.
type LLMConfig struct {
	Enabled         bool   `toml:"enabled"`
	DefaultProvider string `toml:"default_provider"` // "claude" or "gemini"
}

// ClaudeConfig contains Anthropic Claude settings.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key" env:"ANTHROPIC_API_KEY"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"` // Duration string, e.g. "60s"
}

// GeminiConfig contains Google Gemini settings.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key" env:"GEMINI_API_KEY"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// CVConfig controls résumé parsing and upload validation.
type CVConfig struct {
	AcceptedFormats []string `toml:"accepted_formats"` // e.g. [".pdf", ".docx", ".txt"]
	MaxUploadBytes  int64    `toml:"max_upload_bytes"`
	PageParseDelay  int      `toml:"page_parse_delay"` // Per-PDF-page yield in milliseconds
}

// ProfilesConfig selects the user-profile backend.
type ProfilesConfig struct {
	Backend string `toml:"backend"` // "csv" or "json"
	Dir     string `toml:"dir"`
}

// TrackerConfig controls the activity log.
type TrackerConfig struct {
	MaxFileSizeBytes int64 `toml:"max_file_size_bytes"`
}

// TasksConfig controls the task manager.
type TasksConfig struct {
	MaxConcurrent        int     `toml:"max_concurrent"`
	TaskTimeoutSec       float64 `toml:"task_timeout"`
	QueueCheckIntervalMS int     `toml:"queue_check_interval"`
}

// LoggingConfig controls the arbor logger.
type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// ScheduleConfig describes one recurring search.
type ScheduleConfig struct {
	Cron     string `toml:"cron"`
	Title    string `toml:"title"`
	Location string `toml:"location"`
}

// LoadFromFiles loads configuration from defaults, then each TOML file in
// order (later files override earlier ones), then environment variables for
// secrets. Validation issues are returned as warnings, not errors, unless a
// critical field is unusable.
func LoadFromFiles(paths ...string) (*Config, []string, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: reading config %s: %v", ErrConfigInvalid, path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, nil, fmt.Errorf("%w: parsing config %s: %v", ErrConfigInvalid, path, err)
		}
	}

	// Environment overrides for secrets (highest priority below CLI flags)
	if err := env.Parse(config); err != nil {
		return nil, nil, fmt.Errorf("%w: environment overrides: %v", ErrConfigInvalid, err)
	}

	warnings := config.validate()
	return config, warnings, nil
}

// validate checks non-critical fields and returns human-readable warnings.
func (c *Config) validate() []string {
	var warnings []string

	v := validator.New()
	if c.Platform.LinkedIn.Email != "" {
		if err := v.Var(c.Platform.LinkedIn.Email, "email"); err != nil {
			warnings = append(warnings, fmt.Sprintf("platform.linkedin.email %q is not a valid email address", c.Platform.LinkedIn.Email))
		}
	}
	switch c.Captcha.Handler {
	case "manual", "external":
	default:
		warnings = append(warnings, fmt.Sprintf("captcha.handler %q is unknown, falling back to manual", c.Captcha.Handler))
		c.Captcha.Handler = "manual"
	}
	if c.Captcha.Handler == "external" && c.Captcha.APIKey == "" {
		warnings = append(warnings, "captcha.handler is external but no API key is set (PETO_CAPTCHA_API_KEY)")
	}
	switch c.Browser.Type {
	case "edge", "chrome", "firefox", "chromium", "webkit", "":
	default:
		warnings = append(warnings, fmt.Sprintf("browser.type %q is unknown", c.Browser.Type))
	}
	if c.Tasks.MaxConcurrent <= 0 {
		warnings = append(warnings, "tasks.max_concurrent must be positive, using default")
		c.Tasks.MaxConcurrent = DefaultMaxConcurrentTasks
	}
	if c.Tracker.MaxFileSizeBytes <= 0 {
		warnings = append(warnings, "tracker.max_file_size_bytes must be positive, using default")
		c.Tracker.MaxFileSizeBytes = DefaultMaxLogFileSize
	}
	for i, s := range c.Schedules {
		if s.Cron == "" || s.Title == "" {
			warnings = append(warnings, fmt.Sprintf("schedule[%d] is missing cron or title and will be ignored", i))
		}
	}
	return warnings
}

// MinDelay returns the human-pacing lower bound.
func (c *LinkedInConfig) MinDelay() time.Duration {
	return time.Duration(c.MinDelaySec * float64(time.Second))
}

// MaxDelay returns the human-pacing upper bound.
func (c *LinkedInConfig) MaxDelay() time.Duration {
	return time.Duration(c.MaxDelaySec * float64(time.Second))
}

// ElementTimeout returns the default element wait timeout.
func (c *LinkedInConfig) ElementTimeout() time.Duration {
	return time.Duration(c.DefaultTimeout) * time.Millisecond
}

// RetryDelay returns the base retry delay.
func (c *SystemConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySec * float64(time.Second))
}

// PollInterval returns the solver poll interval.
func (c *CaptchaConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// MaxWait returns the solver overall wait budget.
func (c *CaptchaConfig) MaxWait() time.Duration {
	return time.Duration(c.MaxWaitSec * float64(time.Second))
}

// TaskTimeout returns the per-task execution budget.
func (c *TasksConfig) TaskTimeout() time.Duration {
	return time.Duration(c.TaskTimeoutSec * float64(time.Second))
}

// QueueCheckInterval returns the slot-wait poll interval.
func (c *TasksConfig) QueueCheckInterval() time.Duration {
	return time.Duration(c.QueueCheckIntervalMS) * time.Millisecond
}

// PDFPageParseDelay returns the per-page scheduler yield.
func (c *CVConfig) PDFPageParseDelay() time.Duration {
	return time.Duration(c.PageParseDelay) * time.Millisecond
}

// ApplyFlagOverrides applies command-line overrides on top of the loaded
// configuration. Zero values mean "not set".
func ApplyFlagOverrides(config *Config, dataDir string, headless bool, headlessSet bool) {
	if dataDir != "" {
		config.System.DataDir = dataDir
		config.Browser.DataDir = dataDir
	}
	if headlessSet {
		config.Browser.Headless = headless
	}
}
