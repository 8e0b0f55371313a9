// Package gitrepo shells out to git for diff ranges and changed-file lists.
package gitrepo

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// Runner executes a git command in a directory and returns its stdout.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("git %s: %w", args[0], err)
		}
		return "", fmt.Errorf("git %s: %s: %w", args[0], msg, err)
	}
	return stdout.String(), nil
}

// Client runs git against one repository. The working directory is an
// explicit parameter of every invocation; the process working directory is
// never mutated. The two calls that can block on the network or on large
// repositories (fetch, diff) run under a per-call deadline with one retry
// on failure.
type Client struct {
	dir     string
	timeout time.Duration
	logger  *slog.Logger
	runner  Runner
}

const (
	defaultTimeout = 60 * time.Second
	retryDelay     = 500 * time.Millisecond
)

// New returns a Client rooted at dir.
func New(dir string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{dir: dir, timeout: timeout, logger: logger, runner: execRunner{}}
}

// Fetch deepens local history so base and head are resolvable. Failures are
// logged and ignored: on a fresh full clone there is nothing to fetch and
// the diff will still work.
func (c *Client) Fetch(ctx context.Context, base, head string) {
	_, err := c.withRetry(ctx, func(ctx context.Context) (string, error) {
		return c.runner.Run(ctx, c.dir, "fetch", "--quiet", "--no-tags", "origin", base, head)
	})
	if err != nil {
		c.logger.Debug("git fetch failed, continuing with local history", "error", err)
	}
}

// DiffRange returns the unified diff between base and head with zero
// context lines.
func (c *Client) DiffRange(ctx context.Context, base, head string) (string, error) {
	out, err := c.withRetry(ctx, func(ctx context.Context) (string, error) {
		return c.runner.Run(ctx, c.dir, "diff", "--unified=0", "--no-color", base, head)
	})
	if err != nil {
		return "", fmt.Errorf("diff %s..%s: %w", base, head, err)
	}
	return out, nil
}

// ChangedFiles returns every path touched between base and head.
func (c *Client) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	out, err := c.withRetry(ctx, func(ctx context.Context) (string, error) {
		return c.runner.Run(ctx, c.dir, "diff", "--name-only", "--no-color", base, head)
	})
	if err != nil {
		return nil, fmt.Errorf("changed files %s..%s: %w", base, head, err)
	}

	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// withRetry runs fn under the client deadline and retries once unless the
// parent context is already done.
func (c *Client) withRetry(ctx context.Context, fn func(context.Context) (string, error)) (string, error) {
	run := func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()
		return fn(callCtx)
	}

	out, err := run()
	if err == nil || ctx.Err() != nil {
		return out, err
	}

	c.logger.Warn("git call failed, retrying once", "error", err)
	time.Sleep(retryDelay)
	return run()
}
