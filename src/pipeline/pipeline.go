// Package pipeline orchestrates the full build -> test -> sbom -> push
// -> mirror flow across every (variant, architecture) pair.
//
// Pairs run under a bounded worker pool. A failure in one pair never
// stops the others; within a pair, a failed step leaves the remaining
// steps not-attempted. Cancellation marks pairs that have not started
// as not-attempted rather than failed.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/cit"
	"github.com/daemonless/dbuild/src/config"
)

// Builder builds one variant for one architecture.
type Builder interface {
	Build(ctx context.Context, cfg *config.Config, v config.Variant, arch string) (string, error)
}

// Tester runs the integration test ladder against a built variant.
type Tester interface {
	Test(ctx context.Context, cfg *config.Config, v config.Variant) (*cit.Result, error)
}

// SBOMGenerator writes the bill of materials for a built variant.
type SBOMGenerator interface {
	Generate(ctx context.Context, cfg *config.Config, v config.Variant, arch, outDir string) (string, error)
}

// Pusher publishes a built variant and mirrors its tags.
type Pusher interface {
	Push(ctx context.Context, cfg *config.Config, v config.Variant, arch string) ([]string, error)
	MirrorTags(ctx context.Context, cfg *config.Config, tags []string) error
}

// StepStatus is the outcome of one pipeline step for one pair.
type StepStatus string

const (
	StepSuccess      StepStatus = "success"
	StepFailed       StepStatus = "failed"
	StepSkipped      StepStatus = "skipped"
	StepNotAttempted StepStatus = "not-attempted"
)

// Item is the pipeline state for one (variant, architecture) pair.
type Item struct {
	Variant config.Variant
	Arch    string

	Build  StepStatus
	Test   StepStatus
	SBOM   StepStatus
	Push   StepStatus
	Mirror StepStatus

	TestResult *cit.Result
	Err        error
	Elapsed    time.Duration
}

// Failed reports whether any step of the pair failed.
func (it *Item) Failed() bool {
	for _, s := range []StepStatus{it.Build, it.Test, it.SBOM, it.Push, it.Mirror} {
		if s == StepFailed {
			return true
		}
	}
	return false
}

// Run is the outcome of a whole pipeline invocation.
type Run struct {
	Items []Item
}

// Failed reports whether any pair failed.
func (r *Run) Failed() bool {
	for i := range r.Items {
		if r.Items[i].Failed() {
			return true
		}
	}
	return false
}

// Orchestrator wires the pipeline steps together.
type Orchestrator struct {
	Config  *config.Config
	Builder Builder
	Tester  Tester
	SBOM    SBOMGenerator
	Pusher  Pusher
	Log     zerolog.Logger

	// Concurrency bounds the number of pairs in flight. Zero means one.
	Concurrency int
	// SBOMDir is the output directory for SBOM documents.
	SBOMDir string
}

// Run executes the pipeline for every (variant, arch) pair. The
// returned Run lists pairs in variant-then-architecture order
// regardless of completion order.
func (o *Orchestrator) Run(ctx context.Context, variants []config.Variant, skips ci.SkipSet) *Run {
	var items []Item
	for _, v := range variants {
		arches := v.Architectures
		if len(arches) == 0 {
			arches = o.Config.Architectures()
		}
		for _, arch := range arches {
			items = append(items, Item{
				Variant: v,
				Arch:    arch,
				Build:   StepNotAttempted,
				Test:    StepNotAttempted,
				SBOM:    StepNotAttempted,
				Push:    StepNotAttempted,
				Mirror:  StepNotAttempted,
			})
		}
	}

	limit := o.Concurrency
	if limit < 1 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)

	for i := range items {
		item := &items[i]
		g.Go(func() error {
			o.runItem(ctx, item, skips)
			return nil
		})
	}
	_ = g.Wait()

	return &Run{Items: items}
}

func (o *Orchestrator) runItem(ctx context.Context, item *Item, skips ci.SkipSet) {
	// A pair that has not started when the run is cancelled stays
	// entirely not-attempted.
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	defer func() { item.Elapsed = time.Since(start) }()

	log := o.Log.With().Str("tag", item.Variant.Tag).Str("arch", item.Arch).Logger()

	if _, err := o.Builder.Build(ctx, o.Config, item.Variant, item.Arch); err != nil {
		item.Build = StepFailed
		item.Err = err
		log.Error().Err(err).Msg("build failed")
		return
	}
	item.Build = StepSuccess

	if skips.Has("test") {
		item.Test = StepSkipped
		log.Info().Msg("skipping tests ([skip test])")
	} else {
		res, err := o.Tester.Test(ctx, o.Config, item.Variant)
		item.TestResult = res
		if err != nil {
			item.Test = StepFailed
			item.Err = err
			log.Error().Err(err).Msg("test harness failed")
			return
		}
		if !res.Passed() {
			item.Test = StepFailed
			item.Err = &TestFailure{Tag: item.Variant.Tag, Arch: item.Arch, Result: res}
			log.Error().Msg("tests failed")
			return
		}
		item.Test = StepSuccess
	}

	if skips.Has("sbom") {
		item.SBOM = StepSkipped
		log.Info().Msg("skipping SBOM ([skip sbom])")
	} else {
		if _, err := o.SBOM.Generate(ctx, o.Config, item.Variant, item.Arch, o.SBOMDir); err != nil {
			item.SBOM = StepFailed
			item.Err = err
			log.Error().Err(err).Msg("SBOM generation failed")
			return
		}
		item.SBOM = StepSuccess
	}

	if skips.Has("push") {
		item.Push = StepSkipped
		item.Mirror = StepSkipped
		log.Info().Msg("skipping push ([skip push])")
		return
	}
	tags, err := o.Pusher.Push(ctx, o.Config, item.Variant, item.Arch)
	if err != nil {
		item.Push = StepFailed
		item.Err = err
		log.Error().Err(err).Msg("push failed")
		// The mirror copies from the registry, so nothing to mirror.
		return
	}
	item.Push = StepSuccess

	if skips.Has("push:dockerhub") {
		item.Mirror = StepSkipped
		log.Info().Msg("skipping mirror ([skip push:dockerhub])")
		return
	}
	if err := o.Pusher.MirrorTags(ctx, o.Config, tags); err != nil {
		item.Mirror = StepFailed
		item.Err = err
		log.Error().Err(err).Msg("mirror failed")
		return
	}
	item.Mirror = StepSuccess
}
