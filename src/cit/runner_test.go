package cit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonless/dbuild/src/labels"
)

type fakeRuntime struct {
	startErr    error
	running     bool
	execErr     error
	ip          string
	logs        string
	teardowns   int
	startedName string
}

func (f *fakeRuntime) Start(ctx context.Context, image, name string, annotations map[string]string) error {
	f.startedName = name
	return f.startErr
}
func (f *fakeRuntime) Running(ctx context.Context, name string) (bool, error) { return f.running, nil }
func (f *fakeRuntime) Exec(ctx context.Context, name string, cmd []string) error {
	return f.execErr
}
func (f *fakeRuntime) IP(ctx context.Context, name string) (string, error)   { return f.ip, nil }
func (f *fakeRuntime) Logs(ctx context.Context, name string) (string, error) { return f.logs, nil }
func (f *fakeRuntime) Teardown(ctx context.Context, name string)             { f.teardowns++ }

type fakeProber struct {
	portErr   error
	healthErr error
}

func (f *fakeProber) WaitPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	return f.portErr
}
func (f *fakeProber) WaitHealth(ctx context.Context, url string, timeout time.Duration) error {
	return f.healthErr
}

type fakeCapturer struct {
	captureErr error
	score      float64
	compareErr error
}

func (f *fakeCapturer) Capture(ctx context.Context, url, outPath string, minWait time.Duration) error {
	return f.captureErr
}
func (f *fakeCapturer) Compare(capturedPath, baselinePath string) (float64, error) {
	return f.score, f.compareErr
}
func (f *fakeCapturer) Matches(score float64) bool { return score >= 0.95 }

func newTestRunner(rt Runtime, pr *fakeProber, c *fakeCapturer) *Runner {
	return &Runner{
		Runtime:      rt,
		Prober:       pr,
		Capturer:     c,
		Log:          zerolog.Nop(),
		StartupDelay: time.Millisecond,
		LogPoll:      time.Millisecond,
		Baseline:     "baseline.png",
	}
}

func healthyRuntime() *fakeRuntime {
	return &fakeRuntime{running: true, ip: "10.88.0.2", logs: "Application started"}
}

func effWith(wait int) labels.Effective {
	return labels.Effective{Port: 8080, Health: "/", Wait: wait}
}

func TestRunShellModeSkipsUpperLevels(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeShell, effWith(1))

	assert.Equal(t, StatusPass, res.Shell)
	assert.Equal(t, StatusSkip, res.Port)
	assert.Equal(t, StatusSkip, res.Health)
	assert.Equal(t, StatusSkip, res.Screenshot)
	assert.Equal(t, StatusSkip, res.Verify)
	assert.True(t, res.Passed())
	assert.Equal(t, 1, rt.teardowns)
}

func TestRunFullLadderPass(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{score: 0.99})

	res := r.Run(context.Background(), "img:build-latest", ModeScreenshot, effWith(1))

	assert.Equal(t, StatusPass, res.Shell)
	assert.Equal(t, StatusPass, res.Port)
	assert.Equal(t, StatusPass, res.Health)
	assert.Equal(t, StatusPass, res.Screenshot)
	assert.Equal(t, StatusPass, res.Verify)
	assert.True(t, res.Passed())
}

func TestRunStartFailureFailsShellAndSkipsRest(t *testing.T) {
	rt := &fakeRuntime{startErr: errors.New("no such image")}
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeHealth, effWith(1))

	assert.Equal(t, StatusFail, res.Shell)
	assert.Equal(t, StatusSkip, res.Port)
	assert.Equal(t, StatusSkip, res.Health)
	assert.False(t, res.Passed())
	assert.Equal(t, 1, rt.teardowns)
}

func TestRunContainerExitsImmediately(t *testing.T) {
	rt := &fakeRuntime{running: false}
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModePort, effWith(1))

	assert.Equal(t, StatusFail, res.Shell)
	assert.Equal(t, StatusSkip, res.Port)
}

func TestRunPortFailureSkipsHigherLevels(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{portErr: errors.New("timeout")}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeScreenshot, effWith(1))

	assert.Equal(t, StatusPass, res.Shell)
	assert.Equal(t, StatusFail, res.Port)
	assert.Equal(t, StatusSkip, res.Health)
	assert.Equal(t, StatusSkip, res.Screenshot)
	assert.Equal(t, StatusSkip, res.Verify)
	assert.False(t, res.Passed())
}

func TestRunHealthFailure(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{healthErr: errors.New("status 503")}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeHealth, effWith(1))

	assert.Equal(t, StatusPass, res.Port)
	assert.Equal(t, StatusFail, res.Health)
}

func TestRunCaptureFailure(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{captureErr: errors.New("chrome crashed")})

	res := r.Run(context.Background(), "img:build-latest", ModeScreenshot, effWith(1))

	assert.Equal(t, StatusPass, res.Health)
	assert.Equal(t, StatusFail, res.Screenshot)
	assert.Equal(t, StatusSkip, res.Verify)
	assert.False(t, res.Passed())
}

func TestRunVerifyMismatch(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{score: 0.42})

	res := r.Run(context.Background(), "img:build-latest", ModeScreenshot, effWith(1))

	// Capture worked; only the baseline comparison failed.
	assert.Equal(t, StatusPass, res.Screenshot)
	assert.Equal(t, StatusFail, res.Verify)
	assert.False(t, res.Passed())
}

func TestRunUsesUniqueContainerNames(t *testing.T) {
	rt := healthyRuntime()
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	r.Run(context.Background(), "img:build-latest", ModeShell, effWith(1))
	first := rt.startedName
	r.Run(context.Background(), "img:build-latest", ModeShell, effWith(1))

	assert.NotEmpty(t, first)
	assert.NotEqual(t, first, rt.startedName)
}

func TestRunReadyWaitFatalWhenContainerDies(t *testing.T) {
	// Logs never match the ready patterns, and the container has exited
	// by the time the health level polls.
	rt := &exitingRuntime{fakeRuntime: &fakeRuntime{ip: "10.88.0.2", logs: "booting"}}
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeHealth, effWith(1))
	assert.Equal(t, StatusPass, res.Port)
	assert.Equal(t, StatusFail, res.Health)
}

// exitingRuntime reports running during the shell check, then exited.
type exitingRuntime struct {
	*fakeRuntime
	calls int
}

func (e *exitingRuntime) Running(ctx context.Context, name string) (bool, error) {
	e.calls++
	return e.calls == 1, nil
}

func TestRunExplicitReadyPatternTimeoutFails(t *testing.T) {
	rt := healthyRuntime()
	rt.logs = "booting"
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	eff := labels.Effective{Port: 8080, Health: "/", Ready: "Custom startup banner"}
	res := r.Run(context.Background(), "img:build-latest", ModeHealth, eff)

	assert.Equal(t, StatusPass, res.Port)
	assert.Equal(t, StatusFail, res.Health)
}

func TestRunDefaultReadyPatternTimeoutProceeds(t *testing.T) {
	// No configured pattern and logs that never match the defaults: the
	// wait is advisory and the health probe still runs.
	rt := healthyRuntime()
	rt.logs = "booting"
	r := newTestRunner(rt, &fakeProber{}, &fakeCapturer{})

	res := r.Run(context.Background(), "img:build-latest", ModeHealth, effWith(0))

	assert.Equal(t, StatusPass, res.Health)
}

func TestResultPassed(t *testing.T) {
	res := &Result{Shell: StatusPass, Port: StatusSkip, Health: StatusSkip, Screenshot: StatusSkip, Verify: StatusSkip}
	assert.True(t, res.Passed())

	res.Port = StatusFail
	assert.False(t, res.Passed())
}

func TestFindBaseline(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, mkdirWrite(root, ".daemonless/baseline-pkg.png"))
	require.NoError(t, mkdirWrite(root, "baseline.png"))

	assert.Contains(t, FindBaseline(root, "pkg"), "baseline-pkg.png")
	// No variant-specific file for latest: shared fallback.
	assert.Contains(t, FindBaseline(root, "latest"), "baseline.png")
	assert.Empty(t, FindBaseline(t.TempDir(), "latest"))
}

func mkdirWrite(root, rel string) error {
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, []byte("png"), 0o644)
}
