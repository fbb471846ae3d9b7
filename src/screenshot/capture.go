// Package screenshot captures rendered page views via headless chromium
// and compares them structurally against stored baselines.
package screenshot

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/daemonless/dbuild/src/config"
)

// Engine drives headless chromium for viewport captures.
type Engine struct {
	ChromeBin string
	Size      string  // "W,H"
	Threshold float64 // minimum similarity score for a baseline match
}

// NewEngine builds an Engine from resolved settings.
func NewEngine(settings config.Settings) *Engine {
	return &Engine{
		ChromeBin: settings.ChromeBin,
		Size:      settings.ScreenshotSize,
		Threshold: settings.SSIMThreshold,
	}
}

// MissingDeps returns the capture dependencies that are not installed.
// An empty slice means screenshot mode is supported.
func (e *Engine) MissingDeps() []string {
	var missing []string
	if _, err := os.Stat(e.ChromeBin); err != nil {
		missing = append(missing, fmt.Sprintf("chromium (%s)", e.ChromeBin))
	}
	return missing
}

// Capture renders url and writes a PNG to outPath. minWait delays the
// capture so slow UIs finish their initial render.
func (e *Engine) Capture(ctx context.Context, url, outPath string, minWait time.Duration) error {
	if minWait > 0 {
		select {
		case <-time.After(minWait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	args := []string{
		"--headless=new",
		"--no-sandbox",
		"--disable-gpu",
		"--disable-extensions",
		"--hide-scrollbars",
		"--window-size=" + e.Size,
		"--screenshot=" + outPath,
		url,
	}
	cmd := exec.CommandContext(ctx, e.ChromeBin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("screenshot capture failed: %w: %s", err, string(out))
	}
	if fi, err := os.Stat(outPath); err != nil || fi.Size() == 0 {
		return fmt.Errorf("screenshot capture produced no output at %s", outPath)
	}
	return nil
}
