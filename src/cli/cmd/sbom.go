package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/sbom"
)

var sbomOutputDir string

var sbomCmd = &cobra.Command{
	Use:   "sbom",
	Short: "Generate software bills of materials",
	Long: `Scan built images for installed FreeBSD packages and language-level
dependencies (via trivy) and write one SBOM document per variant.`,
	RunE: runSBOM,
}

func init() {
	sbomCmd.Flags().StringVar(&sbomOutputDir, "output-dir", "sbom-results", "SBOM output directory")
	rootCmd.AddCommand(sbomCmd)
}

func runSBOM(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}

	backend := ci.Detect(rootDir)
	if skipDirectives(backend).Has("sbom") {
		log.Info().Msg("skipping SBOM generation ([skip sbom] in commit message)")
		return nil
	}

	gen := &sbom.Generator{Client: newPodman(), Log: log}
	arch := targetArch()
	color := output.UseColor()
	start := time.Now()

	var written []string
	for _, v := range vs {
		path, err := gen.Generate(ctx, cfg, v, arch, sbomOutputDir)
		if err != nil {
			return err
		}
		written = append(written, path)
	}

	s := output.NewSection(os.Stdout, "SBOM summary", time.Since(start), color)
	for _, path := range written {
		s.Row("%s %s", output.StatusIcon("success", color), path)
	}
	s.Close()
	return nil
}
