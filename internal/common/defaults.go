// Package common provides shared configuration, logging and utilities.
package common

// Default values for configuration fields not present in any config file.
const (
	DefaultMaxConcurrentTasks = 3
	DefaultMaxLogFileSize     = 5 * 1024 * 1024 // 5 MB
	DefaultMaxUploadBytes     = 5 * 1024 * 1024 // 5 MB
	DefaultMaxRetries         = 3
	DefaultBackoffFactor      = 2.0
	DefaultBaseConfidence     = 0.6
	DefaultMaxJobs            = 10
)

// DefaultConfig returns the configuration defaults enumerated in the external
// interface contract. Config files and environment variables override these.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Browser: BrowserConfig{
			Type:           "", // Prompt the operator when absent
			Headless:       false,
			CDPPort:        9222,
			ViewportWidth:  1280,
			ViewportHeight: 720,
			UserAgent:      "",
			AttachExisting: false,
			DataDir:        "./data",
		},
		Platform: PlatformConfig{
			LinkedIn: LinkedInConfig{
				DefaultTimeout: 10000,
				MinDelaySec:    1.0,
				MaxDelaySec:    3.0,
				MaxRetries:     DefaultMaxRetries,
				MaxJobs:        DefaultMaxJobs,
			},
		},
		System: SystemConfig{
			DebugMode:     false,
			LogLevel:      "INFO",
			DataDir:       "./data",
			MaxRetries:    DefaultMaxRetries,
			RetryDelaySec: 1.0,
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			StoragePath: "./data/telemetry",
		},
		Captcha: CaptchaConfig{
			Handler:        "manual",
			SolverURL:      "https://2captcha.com",
			PollIntervalMS: 5000,
			MaxWaitSec:     120,
		},
		LLM: LLMConfig{
			Enabled:         false,
			DefaultProvider: "claude",
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			MaxTokens:   1024,
			Temperature: 0.7,
			Timeout:     "60s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Temperature: 0.7,
		},
		CV: CVConfig{
			AcceptedFormats: []string{".pdf", ".docx", ".txt"},
			MaxUploadBytes:  DefaultMaxUploadBytes,
			PageParseDelay:  10,
		},
		Profiles: ProfilesConfig{
			Backend: "json",
			Dir:     "./data/profiles",
		},
		Tracker: TrackerConfig{
			MaxFileSizeBytes: DefaultMaxLogFileSize,
		},
		Tasks: TasksConfig{
			MaxConcurrent:        DefaultMaxConcurrentTasks,
			TaskTimeoutSec:       300,
			QueueCheckIntervalMS: 100,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}
