package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/peto/internal/app"
	"github.com/ternarybob/peto/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	dataDir      = flag.String("data-dir", "", "Data directory (overrides config)")
	headless     = flag.Bool("headless", false, "Run the browser headless (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Peto version %s\n", common.GetVersion())
		return 0
	}

	headlessSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "headless" {
			headlessSet = true
		}
	})

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("peto.toml"); err == nil {
			configFiles = append(configFiles, "peto.toml")
		} else if _, err := os.Stat("deployments/local/peto.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/peto.toml")
		}
	}

	config, warnings, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Error().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		return 1
	}

	common.ApplyFlagOverrides(config, *dataDir, *headless, headlessSet)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	for _, warning := range warnings {
		logger.Warn().Msg(warning)
	}

	logger.Info().
		Strs("config_files", configFiles).
		Str("data_dir", config.System.DataDir).
		Str("environment", config.Environment).
		Msg("Application configuration loaded")

	console := newConsole()

	application, err := app.New(context.Background(), config, console, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize application")
		return 1
	}
	defer application.Close()

	return runREPL(application, console)
}
