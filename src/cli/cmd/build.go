package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/build"
	"github.com/daemonless/dbuild/src/output"
)

var buildPush bool

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build container images",
	Long: `Build all variants (or one selected via --variant) for the target
architecture. Results are tagged {image}:build-{tag} in local storage.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&buildPush, "push", false, "push images after building")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}

	builder := &build.Builder{Client: newPodman(), Log: log, Root: rootDir}
	arch := targetArch()
	start := time.Now()

	var built []string
	for _, v := range vs {
		ref, err := builder.Build(ctx, cfg, v, arch)
		if err != nil {
			return err
		}
		built = append(built, ref)
	}

	color := output.UseColor()
	s := output.NewSection(os.Stdout, "Build summary", time.Since(start), color)
	for _, ref := range built {
		s.Row("%s %s", output.StatusIcon("success", color), ref)
	}
	s.Close()

	if buildPush {
		return runPush(cmd, args)
	}
	return nil
}
