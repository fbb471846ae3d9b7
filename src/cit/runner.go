package cit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/labels"
)

// Status is the outcome of a single ladder level.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusSkip Status = "skip"
)

// Result records the outcome of every ladder level for one image.
// Levels above the selected mode, and levels after a failure, stay skip.
type Result struct {
	Image      string
	Mode       Mode
	Timestamp  time.Time
	Shell      Status
	Port       Status
	Health     Status
	Screenshot Status
	Verify     Status
}

// Passed reports whether no level failed.
func (r *Result) Passed() bool {
	for _, s := range []Status{r.Shell, r.Port, r.Health, r.Screenshot, r.Verify} {
		if s == StatusFail {
			return false
		}
	}
	return true
}

// Fallback values used when a mode needs a port or health path that
// neither config nor labels supplied.
const (
	DefaultPort   = 8080
	DefaultHealth = "/"
)

// defaultReadyPatterns match common service-manager and application
// startup lines. Overridable per image via cit.ready.
const defaultReadyPatterns = `Warmup complete|services\.d.*done|Application started|Startup complete|listening on`

// Capturer renders page screenshots and scores them against baselines.
type Capturer interface {
	Capture(ctx context.Context, url, outPath string, minWait time.Duration) error
	Compare(capturedPath, baselinePath string) (float64, error)
	Matches(score float64) bool
}

// Runner walks the test ladder against a started container.
type Runner struct {
	Runtime  Runtime
	Prober   Prober
	Capturer Capturer
	Log      zerolog.Logger

	// StartupDelay is the settle time after container start before the
	// shell check. Tests shrink it.
	StartupDelay time.Duration
	// LogPoll is the interval between ready-pattern log scans.
	LogPoll time.Duration
	// OutDir receives captured screenshots. Empty means the system
	// temp directory.
	OutDir string

	Baseline string
}

type runState struct {
	name   string
	ip     string
	port   int
	health string
}

// Run executes every ladder level up to mode and returns the per-level
// outcomes. A level failure leaves the remaining levels skipped; the
// container is torn down on every path.
func (r *Runner) Run(ctx context.Context, image string, mode Mode, eff labels.Effective) *Result {
	res := &Result{
		Image:      image,
		Mode:       mode,
		Timestamp:  time.Now().UTC(),
		Shell:      StatusSkip,
		Port:       StatusSkip,
		Health:     StatusSkip,
		Screenshot: StatusSkip,
		Verify:     StatusSkip,
	}

	st := &runState{
		name:   "cit-" + uuid.NewString()[:8],
		port:   eff.Port,
		health: eff.Health,
	}
	if st.port == 0 {
		st.port = DefaultPort
	}
	if st.health == "" {
		st.health = DefaultHealth
	}

	defer r.Runtime.Teardown(context.WithoutCancel(ctx), st.name)

	set := func(m Mode, s Status) {
		switch m {
		case ModeShell:
			res.Shell = s
		case ModePort:
			res.Port = s
		case ModeHealth:
			res.Health = s
		case ModeScreenshot:
			res.Screenshot = s
		}
	}

	for _, lv := range []Mode{ModeShell, ModePort, ModeHealth, ModeScreenshot} {
		if lv > mode {
			break
		}
		if err := r.runLevel(ctx, lv, image, eff, st, res); err != nil {
			r.Log.Error().Str("level", lv.String()).Err(err).Msg("test level failed")
			r.dumpLogs(ctx, st.name)
			// The screenshot level records its own verdicts so a verify
			// failure does not mask a successful capture.
			if lv != ModeScreenshot {
				set(lv, StatusFail)
			}
			break
		}
		set(lv, StatusPass)
	}

	return res
}

func (r *Runner) runLevel(ctx context.Context, lv Mode, image string, eff labels.Effective, st *runState, res *Result) error {
	switch lv {
	case ModeShell:
		return r.shellLevel(ctx, image, eff, st)
	case ModePort:
		return r.portLevel(ctx, eff, st)
	case ModeHealth:
		return r.healthLevel(ctx, eff, st)
	case ModeScreenshot:
		return r.screenshotLevel(ctx, eff, st, res)
	}
	return nil
}

func (r *Runner) shellLevel(ctx context.Context, image string, eff labels.Effective, st *runState) error {
	r.Log.Info().Str("container", st.name).Msg("starting container")
	if err := r.Runtime.Start(ctx, image, st.name, eff.Annotations); err != nil {
		return fmt.Errorf("container failed to start: %w", err)
	}

	delay := r.StartupDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return ctx.Err()
	}

	running, err := r.Runtime.Running(ctx, st.name)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("container exited immediately")
	}
	if err := r.Runtime.Exec(ctx, st.name, []string{"/bin/sh", "-c", "exit 0"}); err != nil {
		return fmt.Errorf("shell exec failed: %w", err)
	}
	return nil
}

func (r *Runner) portLevel(ctx context.Context, eff labels.Effective, st *runState) error {
	ip, err := r.Runtime.IP(ctx, st.name)
	if err != nil || ip == "" {
		return fmt.Errorf("cannot resolve container IP: %w", err)
	}
	st.ip = ip

	timeout := time.Duration(eff.Wait) * time.Second
	r.Log.Info().Str("addr", fmt.Sprintf("%s:%d", ip, st.port)).Msg("waiting for port")
	return r.Prober.WaitPort(ctx, ip, st.port, timeout)
}

func (r *Runner) healthLevel(ctx context.Context, eff labels.Effective, st *runState) error {
	timeout := time.Duration(eff.Wait) * time.Second

	// Wait for the application's startup banner before hitting HTTP.
	// A missing banner is only a warning; an exited container is fatal.
	if err := r.waitReady(ctx, st.name, eff.Ready, timeout); err != nil {
		return err
	}

	url := r.baseURL(eff, st) + st.health
	r.Log.Info().Str("url", url).Msg("waiting for health endpoint")
	return r.Prober.WaitHealth(ctx, url, timeout)
}

func (r *Runner) screenshotLevel(ctx context.Context, eff labels.Effective, st *runState, res *Result) error {
	path := eff.ScreenshotPath
	if path == "" {
		path = "/"
	}
	url := r.baseURL(eff, st) + path

	outDir := r.OutDir
	if outDir == "" {
		outDir = os.TempDir()
	}
	outPath := filepath.Join(outDir, st.name+".png")

	minWait := time.Duration(eff.ScreenshotWait) * time.Second
	r.Log.Info().Str("url", url).Str("out", outPath).Msg("capturing screenshot")
	if err := r.Capturer.Capture(ctx, url, outPath, minWait); err != nil {
		res.Screenshot = StatusFail
		return err
	}

	// Capture succeeded; verification is its own verdict.
	res.Screenshot = StatusPass
	score, err := r.Capturer.Compare(outPath, r.Baseline)
	if err != nil {
		res.Verify = StatusFail
		return fmt.Errorf("baseline comparison: %w", err)
	}
	if !r.Capturer.Matches(score) {
		res.Verify = StatusFail
		return fmt.Errorf("screenshot does not match baseline (similarity %.4f)", score)
	}
	r.Log.Info().Float64("similarity", score).Msg("screenshot matches baseline")
	res.Verify = StatusPass
	return nil
}

func (r *Runner) baseURL(eff labels.Effective, st *runState) string {
	scheme := "http"
	if eff.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, st.ip, st.port)
}

// waitReady scans container logs until a ready pattern appears. With an
// explicitly configured pattern a timeout fails the level; for the
// default patterns it is advisory. An exited container always fails.
func (r *Runner) waitReady(ctx context.Context, name, patterns string, timeout time.Duration) error {
	explicit := patterns != ""
	if !explicit {
		patterns = defaultReadyPatterns
	}
	re, err := regexp.Compile("(?i)" + patterns)
	if err != nil {
		return fmt.Errorf("invalid ready pattern %q: %w", patterns, err)
	}

	poll := r.LogPoll
	if poll == 0 {
		poll = 3 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		logs, _ := r.Runtime.Logs(ctx, name)
		if re.MatchString(logs) {
			return nil
		}
		running, err := r.Runtime.Running(ctx, name)
		if err != nil {
			return err
		}
		if !running {
			return fmt.Errorf("container exited while waiting for ready pattern")
		}
		if time.Now().After(deadline) {
			if explicit {
				return fmt.Errorf("ready pattern %q not seen within %s", patterns, timeout)
			}
			r.Log.Warn().Str("pattern", patterns).Msg("ready pattern not seen before timeout, proceeding")
			return nil
		}
		select {
		case <-time.After(poll):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runner) dumpLogs(ctx context.Context, name string) {
	logs, _ := r.Runtime.Logs(context.WithoutCancel(ctx), name)
	logs = strings.TrimSpace(logs)
	if logs == "" {
		return
	}
	lines := strings.Split(logs, "\n")
	if len(lines) > 20 {
		lines = lines[len(lines)-20:]
	}
	r.Log.Info().Msg("last container log lines:")
	for _, line := range lines {
		fmt.Fprintln(os.Stderr, "  "+line)
	}
}
