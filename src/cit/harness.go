package cit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/config"
	"github.com/daemonless/dbuild/src/labels"
	"github.com/daemonless/dbuild/src/podman"
	"github.com/daemonless/dbuild/src/screenshot"
)

// Harness tests one built variant: reads its labels, resolves the
// effective mode, walks the ladder, and writes the JSON report.
type Harness struct {
	Client   *podman.Client
	Engine   *screenshot.Engine
	Root     string
	Log      zerolog.Logger
	JSONPath string // "" disables the machine-readable report
}

// Test runs the integration test ladder against the variant's build
// image. The returned Result carries per-level outcomes even on
// failure; the error covers setup problems only.
func (h *Harness) Test(ctx context.Context, cfg *config.Config, v config.Variant) (*Result, error) {
	buildRef := fmt.Sprintf("%s:build-%s", cfg.FullImage(), v.Tag)
	if !h.Client.ImageExists(ctx, buildRef) {
		return nil, fmt.Errorf("image %s not found, build it first", buildRef)
	}

	img := labels.Parse(h.Client.InspectLabels(ctx, buildRef))
	eff := labels.Merge(cfg.Test, img)

	baseline := FindBaseline(h.Root, v.Tag)
	caps := Capabilities{
		Baseline:    baseline,
		MissingDeps: h.Engine.MissingDeps(),
	}
	mode, notes, err := Select(eff.Mode, eff, caps)
	if err != nil {
		return nil, err
	}
	for _, note := range notes {
		h.Log.Warn().Msg(note)
	}
	h.Log.Info().Str("image", buildRef).Str("mode", mode.String()).Msg("testing image")

	runtime, err := h.runtime(ctx, cfg, v, eff, buildRef)
	if err != nil {
		return nil, err
	}

	runner := &Runner{
		Runtime:  runtime,
		Prober:   NewProber(),
		Capturer: h.Engine,
		Log:      h.Log,
		Baseline: baseline,
	}
	res := runner.Run(ctx, buildRef, mode, eff)

	if h.JSONPath != "" {
		if err := WriteReport(h.JSONPath, res); err != nil {
			return res, err
		}
		h.Log.Debug().Str("path", h.JSONPath).Msg("wrote test report")
	}
	return res, nil
}

func (h *Harness) runtime(ctx context.Context, cfg *config.Config, v config.Variant, eff labels.Effective, buildRef string) (Runtime, error) {
	if !eff.Compose {
		return NewContainerRuntime(h.Client), nil
	}

	file := FindComposeFile(h.Root)
	if file == "" {
		return nil, fmt.Errorf("cit.compose is set but no .daemonless/compose.yaml exists")
	}
	if !podman.ComposeAvailable() {
		return nil, fmt.Errorf("cit.compose is set but podman-compose is not installed")
	}
	// The stack references the image by its final tag.
	if err := h.Client.Tag(ctx, buildRef, cfg.FullImage()+":"+v.Tag); err != nil {
		return nil, err
	}
	return NewComposeRuntime(h.Client, file), nil
}
