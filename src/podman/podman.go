// Package podman wraps podman, buildah, and podman-compose invocations.
//
// This package has zero business logic. It does not know about config,
// variants, CI, or registries. It runs commands and returns output.
package podman

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Error is returned when a podman/buildah command fails.
type Error struct {
	Cmd      []string
	ExitCode int
	Stderr   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("command failed (rc=%d): %s\n%s", e.ExitCode, strings.Join(e.Cmd, " "), e.Stderr)
}

// Client runs podman commands, escalating privileges via doas/sudo when
// not running as root.
type Client struct {
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer

	privPrefix []string
}

// New creates a podman client with default output writers.
func New(verbose bool) *Client {
	return &Client{
		Verbose:    verbose,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		privPrefix: detectPrivPrefix(),
	}
}

// detectPrivPrefix returns ["doas"] or ["sudo"] when running unprivileged.
func detectPrivPrefix() []string {
	if os.Geteuid() == 0 {
		return nil
	}
	if _, err := exec.LookPath("doas"); err == nil {
		return []string{"doas"}
	}
	if _, err := exec.LookPath("sudo"); err == nil {
		return []string{"sudo"}
	}
	return nil
}

// run executes a command and captures its output.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	full := append(append([]string{}, c.privPrefix...), args...)
	if c.Verbose {
		fmt.Fprintf(c.Stderr, "exec: %s\n", strings.Join(full, " "))
	}

	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), &Error{
			Cmd:      full,
			ExitCode: cmd.ProcessState.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	}
	return stdout.String(), nil
}

// stream executes a command forwarding output to the client writers, so
// the user can follow long-running operations like image builds.
func (c *Client) stream(ctx context.Context, args ...string) error {
	full := append(append([]string{}, c.privPrefix...), args...)
	if c.Verbose {
		fmt.Fprintf(c.Stderr, "exec: %s\n", strings.Join(full, " "))
	}

	cmd := exec.CommandContext(ctx, full[0], full[1:]...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err := cmd.Run(); err != nil {
		return &Error{Cmd: full, ExitCode: cmd.ProcessState.ExitCode()}
	}
	return nil
}
