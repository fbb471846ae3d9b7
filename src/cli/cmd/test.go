package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/cit"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/screenshot"
)

var testJSONPath string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run container integration tests",
	Long: `Test built variants against the cumulative ladder:
shell < port < health < screenshot. The effective mode merges the cit:
config section with the image's OCI labels; missing capabilities
downgrade the mode with a warning.`,
	RunE: runTest,
}

func init() {
	testCmd.Flags().StringVar(&testJSONPath, "json", "", "write a machine-readable result to FILE")
	rootCmd.AddCommand(testCmd)
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}

	harness := &cit.Harness{
		Client:   newPodman(),
		Engine:   screenshot.NewEngine(settings),
		Root:     rootDir,
		Log:      log,
		JSONPath: testJSONPath,
	}

	color := output.UseColor()
	start := time.Now()
	var failed []string

	for _, v := range vs {
		res, err := harness.Test(ctx, cfg, v)
		if err != nil {
			return err
		}
		printResult(v.Tag, res, color)
		if !res.Passed() {
			failed = append(failed, v.Tag)
		}
	}

	status := "success"
	if len(failed) > 0 {
		status = "failed"
	}
	output.SummaryTotal(os.Stdout, time.Since(start), status, color)

	if len(failed) > 0 {
		return fmt.Errorf("tests failed for %d variant(s)", len(failed))
	}
	return nil
}

func printResult(tag string, res *cit.Result, color bool) {
	s := output.NewSection(os.Stdout, fmt.Sprintf("Test :%s (%s)", tag, res.Mode), 0, color)
	for _, level := range []struct {
		name   string
		status cit.Status
	}{
		{"shell", res.Shell},
		{"port", res.Port},
		{"health", res.Health},
		{"screenshot", res.Screenshot},
		{"verify", res.Verify},
	} {
		s.Row("%-12s %s %s", level.name, output.StatusIcon(string(level.status), color), level.status)
	}
	s.Close()
}
