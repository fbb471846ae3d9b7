package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/build"
	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/cit"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/pipeline"
	"github.com/daemonless/dbuild/src/publish"
	"github.com/daemonless/dbuild/src/sbom"
	"github.com/daemonless/dbuild/src/screenshot"
)

var (
	ciJobs     int
	ciJSONPath string
	ciSBOMDir  string
)

var ciCmd = &cobra.Command{
	Use:   "ci",
	Short: "Run the full CI pipeline",
	Long: `Run build -> test -> sbom -> push -> mirror for every
(variant, architecture) pair. Pairs run concurrently up to --jobs; a
failure in one pair does not stop the others.

PR builds skip push and sbom. Commit directives like [skip test] and
[skip push:dockerhub] are honoured.`,
	RunE: runCI,
}

func init() {
	ciCmd.Flags().IntVar(&ciJobs, "jobs", 1, "number of pairs to run concurrently")
	ciCmd.Flags().StringVar(&ciJSONPath, "json", "cit-result.json", "machine-readable test result file")
	ciCmd.Flags().StringVar(&ciSBOMDir, "output-dir", "sbom-results", "SBOM output directory")
	rootCmd.AddCommand(ciCmd)
}

func runCI(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}
	if flagArch != "" {
		for i := range vs {
			vs[i].Architectures = []string{flagArch}
		}
	}

	backend := ci.Detect(rootDir)
	skips := skipDirectives(backend)
	if backend.IsPR() {
		log.Info().Msg("pull-request build, push and SBOM will be skipped")
		skips["push"] = struct{}{}
		skips["sbom"] = struct{}{}
	}

	pd := newPodman()

	pub := &publish.Publisher{Client: pd, Log: log}
	if !skips.Has("push") {
		var err error
		pub, err = setupPublisher(ctx, pd, backend, skips)
		if err != nil {
			return err
		}
	}

	orch := &pipeline.Orchestrator{
		Config:  cfg,
		Builder: &build.Builder{Client: pd, Log: log, Root: rootDir},
		Tester: &cit.Harness{
			Client:   pd,
			Engine:   screenshot.NewEngine(settings),
			Root:     rootDir,
			Log:      log,
			JSONPath: ciJSONPath,
		},
		SBOM:        &sbom.Generator{Client: pd, Log: log},
		Pusher:      pub,
		Log:         log,
		Concurrency: ciJobs,
		SBOMDir:     ciSBOMDir,
	}

	start := time.Now()
	output.SectionStartCollapsed(os.Stdout, "dbuild_pipeline", "Pipeline stages")
	run := orch.Run(ctx, vs, skips)
	output.SectionEnd(os.Stdout, "dbuild_pipeline")
	printPipelineSummary(run, time.Since(start))

	if run.Failed() {
		return fmt.Errorf("CI pipeline failed")
	}
	return nil
}

func printPipelineSummary(run *pipeline.Run, elapsed time.Duration) {
	color := output.UseColor()
	output.SectionStart(os.Stdout, "dbuild_summary", "Pipeline summary")
	defer output.SectionEnd(os.Stdout, "dbuild_summary")
	s := output.NewSection(os.Stdout, "Pipeline summary", elapsed, color)

	for i := range run.Items {
		item := &run.Items[i]
		name := fmt.Sprintf(":%s (%s)", item.Variant.Tag, item.Arch)

		status := "success"
		detail := ""
		switch {
		case item.Failed():
			status = "failed"
			detail = failedStep(item)
		case item.Build == pipeline.StepNotAttempted:
			status = "skipped"
			detail = "not attempted"
		}
		output.SummaryRow(os.Stdout, name, status, detail, color)
	}

	s.Separator()
	total := "success"
	if run.Failed() {
		total = "failed"
	}
	output.SummaryTotal(os.Stdout, elapsed, total, color)
	s.Close()
}

func failedStep(item *pipeline.Item) string {
	steps := []struct {
		name   string
		status pipeline.StepStatus
	}{
		{"build", item.Build},
		{"test", item.Test},
		{"sbom", item.SBOM},
		{"push", item.Push},
		{"mirror", item.Mirror},
	}
	for _, step := range steps {
		if step.status == pipeline.StepFailed {
			return step.name + " failed"
		}
	}
	return ""
}
