package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/saykai/saykai/internal/cli"
	"github.com/saykai/saykai/internal/gitrepo"
	"github.com/saykai/saykai/internal/report"
	"github.com/saykai/saykai/internal/runner"
	"github.com/saykai/saykai/internal/store"
)

var version = "dev"

func main() {
	args := os.Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "init":
			path := ".saykai/spec.yml"
			if len(args) > 1 {
				path = args[1]
			}
			if err := cli.RunInit(path); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "history":
			os.Exit(runHistory(args[1:]))
		case "version":
			fmt.Fprintf(os.Stderr, "saykai %s\n", version)
			return
		case "help", "-h", "--help":
			printUsage()
			return
		case "check":
			args = args[1:]
		}
	}

	os.Exit(runCheck(args))
}

func runCheck(args []string) int {
	checkFlags := flag.NewFlagSet("check", flag.ExitOnError)
	specPath := checkFlags.String("spec", ".saykai/spec.yml", "path to the gate spec file")
	eventPath := checkFlags.String("event", os.Getenv("GITHUB_EVENT_PATH"), "path to the CI event payload JSON")
	repoDir := checkFlags.String("repo", ".", "repository working directory for git")
	label := checkFlags.String("label", "saykai-approved", "approval label that unlocks protected paths")
	maxFiles := checkFlags.Int("max-files", 200, "hard cap on the number of changed files evaluated (0 = no cap)")
	outDir := checkFlags.String("out", ".saykai/reports", "directory for the report pair (empty to disable)")
	dbPath := checkFlags.String("db", defaultDBPath(), "run-history SQLite path (empty to disable)")
	gitTimeout := checkFlags.Duration("git-timeout", 60*time.Second, "deadline for each git fetch/diff call")
	logLevel := checkFlags.String("log-level", "info", "log level (debug, info, warn, error)")
	noColor := checkFlags.Bool("no-color", false, "disable colored output")
	checkFlags.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(*logLevel)}))

	if *eventPath == "" {
		logger.Info("no event payload available, skipping evaluation")
		return 0
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var history store.Store
	if *dbPath != "" {
		s, err := store.NewSQLiteStore(*dbPath, logger)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			history = s
			defer s.Close()
		}
	}

	r := runner.New(runner.Options{
		SpecPath:      *specPath,
		EventPath:     *eventPath,
		RequiredLabel: *label,
		MaxFiles:      *maxFiles,
		OutDir:        *outDir,
		SummaryPath:   os.Getenv("GITHUB_STEP_SUMMARY"),
		Colored:       !*noColor && report.ColorWanted(os.Stdout),
		Git:           gitrepo.New(*repoDir, *gitTimeout, logger),
		History:       history,
		Logger:        logger,
		Stdout:        os.Stdout,
	})
	return r.Run(ctx)
}

func runHistory(args []string) int {
	historyFlags := flag.NewFlagSet("history", flag.ExitOnError)
	dbPath := historyFlags.String("db", defaultDBPath(), "run-history SQLite path")
	limit := historyFlags.Int("limit", 20, "number of runs to show")
	historyFlags.Parse(args)

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := store.NewSQLiteStore(*dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	defer s.Close()

	runs, err := s.RecentRuns(context.Background(), *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return 0
	}

	for _, run := range runs {
		status := "PASS "
		detail := ""
		if !run.Passed {
			status = "BLOCK"
			detail = fmt.Sprintf("  %d failure(s)", run.FailureCount)
		}
		fmt.Printf("%-8s  %-14s  PR #%-5d  %s%s  %s\n",
			shortID(run.ID), humanize.Time(run.CreatedAt), run.PRNumber, status, detail, run.PRTitle)
	}
	return 0
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".saykai")
	os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "saykai.db")
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Saykai — spec-driven pull-request policy gate")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  saykai [check] [options]   Evaluate the current pull request")
	fmt.Fprintln(os.Stderr, "  saykai history [options]   List recent gate runs")
	fmt.Fprintln(os.Stderr, "  saykai init [path]         Write a starter spec file")
	fmt.Fprintln(os.Stderr, "  saykai version             Print version")
	fmt.Fprintln(os.Stderr, "  saykai help                Show this help")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Check options:")
	fmt.Fprintln(os.Stderr, "  -spec string        Spec file path (default \".saykai/spec.yml\")")
	fmt.Fprintln(os.Stderr, "  -event string       Event payload path (default $GITHUB_EVENT_PATH)")
	fmt.Fprintln(os.Stderr, "  -repo string        Repository working directory (default \".\")")
	fmt.Fprintln(os.Stderr, "  -label string       Approval label (default \"saykai-approved\")")
	fmt.Fprintln(os.Stderr, "  -max-files int      Hard cap on evaluated files (default 200)")
	fmt.Fprintln(os.Stderr, "  -out string         Report directory (default \".saykai/reports\")")
	fmt.Fprintln(os.Stderr, "  -db string          Run-history database (default \"~/.saykai/saykai.db\")")
	fmt.Fprintln(os.Stderr, "  -git-timeout dur    Deadline per git fetch/diff call (default \"60s\")")
	fmt.Fprintln(os.Stderr, "  -log-level string   Log level: debug, info, warn, error (default \"info\")")
	fmt.Fprintln(os.Stderr, "  -no-color           Disable colored output")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Exit codes: 0 pass or non-applicable event, 1 blocked or fatal error.")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  saykai init")
	fmt.Fprintln(os.Stderr, "  saykai check -spec .saykai/spec.yml -label saykai-approved")
	fmt.Fprintln(os.Stderr, "  saykai history -limit 10")
}
