package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/cit"
	"github.com/daemonless/dbuild/src/config"
)

type fakeSteps struct {
	mu sync.Mutex

	buildErr  map[string]error // keyed by tag
	testErr   error
	testFail  bool
	sbomErr   error
	pushErr   error
	mirrorErr error

	builds  []string
	pushes  []string
	mirrors int
}

func (f *fakeSteps) key(v config.Variant, arch string) string { return v.Tag + "/" + arch }

func (f *fakeSteps) Build(ctx context.Context, cfg *config.Config, v config.Variant, arch string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, f.key(v, arch))
	if err := f.buildErr[v.Tag]; err != nil {
		return "", err
	}
	return cfg.FullImage() + ":build-" + v.Tag, nil
}

func (f *fakeSteps) Test(ctx context.Context, cfg *config.Config, v config.Variant) (*cit.Result, error) {
	if f.testErr != nil {
		return nil, f.testErr
	}
	res := &cit.Result{Shell: cit.StatusPass, Port: cit.StatusSkip, Health: cit.StatusSkip,
		Screenshot: cit.StatusSkip, Verify: cit.StatusSkip}
	if f.testFail {
		res.Shell = cit.StatusFail
	}
	return res, nil
}

func (f *fakeSteps) Generate(ctx context.Context, cfg *config.Config, v config.Variant, arch, outDir string) (string, error) {
	if f.sbomErr != nil {
		return "", f.sbomErr
	}
	return outDir + "/sbom.json", nil
}

func (f *fakeSteps) Push(ctx context.Context, cfg *config.Config, v config.Variant, arch string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return nil, f.pushErr
	}
	f.pushes = append(f.pushes, f.key(v, arch))
	return []string{v.Tag}, nil
}

func (f *fakeSteps) MirrorTags(ctx context.Context, cfg *config.Config, tags []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.mirrorErr != nil {
		return f.mirrorErr
	}
	f.mirrors++
	return nil
}

func newOrchestrator(f *fakeSteps) *Orchestrator {
	return &Orchestrator{
		Config: &config.Config{
			Image:    "radarr",
			Registry: "ghcr.io/daemonless",
			Build:    config.BuildConfig{Architectures: []string{"amd64"}},
		},
		Builder: f,
		Tester:  f,
		SBOM:    f,
		Pusher:  f,
		Log:     zerolog.Nop(),
		SBOMDir: "sbom-results",
	}
}

func latestVariant() []config.Variant {
	return []config.Variant{{Tag: "latest", Containerfile: "Containerfile"}}
}

func TestRunAllStepsSucceed(t *testing.T) {
	f := &fakeSteps{}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	require.Len(t, run.Items, 1)
	it := run.Items[0]
	assert.Equal(t, StepSuccess, it.Build)
	assert.Equal(t, StepSuccess, it.Test)
	assert.Equal(t, StepSuccess, it.SBOM)
	assert.Equal(t, StepSuccess, it.Push)
	assert.Equal(t, StepSuccess, it.Mirror)
	assert.False(t, run.Failed())
	assert.NotZero(t, it.Elapsed)
}

func TestRunExpandsVariantArchPairs(t *testing.T) {
	f := &fakeSteps{}
	o := newOrchestrator(f)
	o.Config.Build.Architectures = []string{"amd64", "aarch64"}
	variants := []config.Variant{
		{Tag: "latest"},
		{Tag: "pkg", Architectures: []string{"amd64"}},
	}

	run := o.Run(context.Background(), variants, ci.SkipSet{})
	require.Len(t, run.Items, 3)
	assert.Equal(t, "latest", run.Items[0].Variant.Tag)
	assert.Equal(t, "amd64", run.Items[0].Arch)
	assert.Equal(t, "aarch64", run.Items[1].Arch)
	assert.Equal(t, "pkg", run.Items[2].Variant.Tag)
}

func TestRunBuildFailureStopsPair(t *testing.T) {
	f := &fakeSteps{buildErr: map[string]error{"latest": errors.New("pkg fetch failed")}}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepFailed, it.Build)
	assert.Equal(t, StepNotAttempted, it.Test)
	assert.Equal(t, StepNotAttempted, it.SBOM)
	assert.Equal(t, StepNotAttempted, it.Push)
	assert.Equal(t, StepNotAttempted, it.Mirror)
	assert.True(t, run.Failed())
	assert.Error(t, it.Err)
}

func TestRunTestFailureGatesPush(t *testing.T) {
	f := &fakeSteps{testFail: true}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepSuccess, it.Build)
	assert.Equal(t, StepFailed, it.Test)
	assert.Equal(t, StepNotAttempted, it.Push)

	var tf *TestFailure
	require.ErrorAs(t, it.Err, &tf)
	assert.Equal(t, "latest", tf.Tag)
	assert.NotNil(t, it.TestResult)
}

func TestRunHarnessErrorGatesPush(t *testing.T) {
	f := &fakeSteps{testErr: errors.New("image not found")}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepFailed, it.Test)
	assert.Equal(t, StepNotAttempted, it.SBOM)
}

func TestRunSkipDirectives(t *testing.T) {
	f := &fakeSteps{}
	skips := ci.ParseSkipDirectives("[skip test] [skip sbom]")
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), skips)

	it := run.Items[0]
	assert.Equal(t, StepSkipped, it.Test)
	assert.Equal(t, StepSkipped, it.SBOM)
	assert.Equal(t, StepSuccess, it.Push)
	assert.Equal(t, StepSuccess, it.Mirror)
	assert.False(t, run.Failed())
}

func TestRunSkipPushCoversMirror(t *testing.T) {
	f := &fakeSteps{}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.ParseSkipDirectives("[skip push]"))

	it := run.Items[0]
	assert.Equal(t, StepSkipped, it.Push)
	assert.Equal(t, StepSkipped, it.Mirror)
	assert.Empty(t, f.pushes)
	assert.Zero(t, f.mirrors)
}

func TestRunSkipDockerhubOnly(t *testing.T) {
	f := &fakeSteps{}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.ParseSkipDirectives("[skip push:dockerhub]"))

	it := run.Items[0]
	assert.Equal(t, StepSuccess, it.Push)
	assert.Equal(t, StepSkipped, it.Mirror)
	assert.Zero(t, f.mirrors)
}

func TestRunPushFailureLeavesMirrorNotAttempted(t *testing.T) {
	f := &fakeSteps{pushErr: errors.New("registry unreachable")}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepFailed, it.Push)
	assert.Equal(t, StepNotAttempted, it.Mirror)
	assert.Zero(t, f.mirrors)
}

func TestRunMirrorFailure(t *testing.T) {
	f := &fakeSteps{mirrorErr: errors.New("hub quota")}
	run := newOrchestrator(f).Run(context.Background(), latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepSuccess, it.Push)
	assert.Equal(t, StepFailed, it.Mirror)
	assert.True(t, run.Failed())
}

func TestRunFailureIsolation(t *testing.T) {
	f := &fakeSteps{buildErr: map[string]error{"pkg": errors.New("boom")}}
	o := newOrchestrator(f)
	variants := []config.Variant{{Tag: "latest"}, {Tag: "pkg"}}

	run := o.Run(context.Background(), variants, ci.SkipSet{})
	require.Len(t, run.Items, 2)
	assert.Equal(t, StepSuccess, run.Items[0].Push)
	assert.Equal(t, StepFailed, run.Items[1].Build)
	assert.True(t, run.Failed())
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeSteps{}
	run := newOrchestrator(f).Run(ctx, latestVariant(), ci.SkipSet{})

	it := run.Items[0]
	assert.Equal(t, StepNotAttempted, it.Build)
	assert.Empty(t, f.builds)
	assert.False(t, run.Failed())
}

func TestRunConcurrencyBound(t *testing.T) {
	f := &fakeSteps{}
	o := newOrchestrator(f)
	o.Concurrency = 4
	variants := []config.Variant{{Tag: "a"}, {Tag: "b"}, {Tag: "c"}}

	run := o.Run(context.Background(), variants, ci.SkipSet{})
	assert.Len(t, run.Items, 3)
	assert.Len(t, f.builds, 3)
}
