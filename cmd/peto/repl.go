package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ternarybob/peto/internal/app"
)

const helpLine = `commands: start | stop | status | search "<title>" "<location>" | pause | resume | config | quit`

// runREPL drives the interactive command loop. Returns the process exit code:
// 0 on a clean quit, non-zero on a fatal error.
func runREPL(application *app.App, console *console) int {
	ctx := context.Background()

	// Ctrl+C ends the session and exits cleanly; deferred closes are skipped
	// so the shutdown is done here.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println()
		_ = application.Controller.EndSession(ctx)
		application.Close()
		os.Exit(0)
	}()

	fmt.Println(helpLine)
	for {
		fmt.Print("peto> ")
		line, err := console.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = application.Controller.EndSession(ctx)
				return 0
			}
			application.Logger.Error().Err(err).Msg("Reading command failed")
			return 1
		}
		if line == "" {
			continue
		}

		args := splitArgs(line)
		switch args[0] {
		case "start":
			if err := application.Controller.StartSession(ctx); err != nil {
				application.Logger.Error().Err(err).Msg("Session start failed")
				return 1
			}
			application.Scheduler.Start()
			fmt.Println("session started")

		case "stop":
			if err := application.Controller.EndSession(ctx); err != nil {
				application.Logger.Error().Err(err).Msg("Session stop failed")
				return 1
			}
			fmt.Println("session stopped")

		case "status":
			printStatus(application)

		case "search":
			runSearch(ctx, application, args[1:])

		case "pause":
			application.Controller.PauseSession(ctx)
			fmt.Println("paused")

		case "resume":
			application.Controller.ResumeSession(ctx)
			fmt.Println("resumed")

		case "config":
			printConfig(application)

		case "quit", "exit":
			_ = application.Controller.EndSession(ctx)
			return 0

		default:
			fmt.Println(helpLine)
		}
	}
}

func runSearch(ctx context.Context, application *app.App, args []string) {
	if len(args) == 0 || args[0] == "" {
		fmt.Println(`usage: search "<title>" "<location>"`)
		return
	}
	title := args[0]
	location := ""
	if len(args) > 1 {
		location = args[1]
	}

	outcomes, err := application.Controller.RunSearch(ctx, "linkedin", title, location)
	if err != nil {
		fmt.Printf("search failed: %v\n", err)
		return
	}
	fmt.Printf("%d listings processed\n", len(outcomes))
	for _, posting := range outcomes {
		fmt.Printf("  %s at %s [%s] -> %s\n", posting.JobTitle, posting.Company, posting.Location, posting.ApplicationStatus)
	}
}

func printStatus(application *app.App) {
	status := application.Controller.SessionStatus()
	if status.StartedAt == nil {
		fmt.Println("session: not started")
	} else {
		fmt.Printf("session: started at %s\n", status.StartedAt.Format("15:04:05"))
	}
	fmt.Printf("paused: %v  stopped: %v\n", status.Paused, status.Stopped)
	fmt.Printf("active tasks: %d\n", len(status.ActiveTasks))
	for _, task := range status.ActiveTasks {
		fmt.Printf("  %s (%s) %s\n", task.ID, task.Type, task.Status)
	}
}

// printConfig shows the resolved configuration without secrets.
func printConfig(application *app.App) {
	config := application.Config
	fmt.Printf("environment:      %s\n", config.Environment)
	fmt.Printf("data_dir:         %s\n", config.System.DataDir)
	fmt.Printf("browser:          type=%s headless=%v attach=%v\n",
		config.Browser.Type, config.Browser.Headless, config.Browser.AttachExisting)
	fmt.Printf("linkedin:         max_jobs=%d max_retries=%d timeout=%s\n",
		config.Platform.LinkedIn.MaxJobs, config.Platform.LinkedIn.MaxRetries, config.Platform.LinkedIn.ElementTimeout())
	fmt.Printf("llm:              enabled=%v provider=%s\n", config.LLM.Enabled, config.LLM.DefaultProvider)
	fmt.Printf("captcha:          handler=%s\n", config.Captcha.Handler)
	fmt.Printf("telemetry:        enabled=%v\n", config.Telemetry.Enabled)
	fmt.Printf("tasks:            max_concurrent=%d timeout=%s\n", config.Tasks.MaxConcurrent, config.Tasks.TaskTimeout())
	fmt.Printf("schedules:        %d registered\n", application.Scheduler.Entries())
}

// splitArgs tokenizes a command line, honouring double-quoted arguments so
// search titles and locations may contain spaces.
func splitArgs(line string) []string {
	var args []string
	var current strings.Builder
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' && !inQuotes:
			if current.Len() > 0 {
				args = append(args, current.String())
				current.Reset()
			}
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}
