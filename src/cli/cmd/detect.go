package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/ci"
)

var detectFormat string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Output the detected build matrix",
	Long: `Expand variants into a (variant, architecture) build matrix and
output it for CI consumption. --format github writes the matrix and
extra outputs ($GITHUB_OUTPUT); woodpecker/gitlab/json print JSON.`,
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringVar(&detectFormat, "format", "json", "output format: json, github, woodpecker, gitlab, human")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	matrix := ci.BuildMatrix(cfg, variants, flagVariant, flagArch)

	switch detectFormat {
	case "human":
		return printOverview(matrix)

	case "github":
		backend := ci.Detect(rootDir)
		enriched, extras := ci.GitHubExtras(cfg, variants, matrix)
		if err := backend.OutputMatrix(enriched); err != nil {
			return err
		}
		// Deterministic output order.
		for _, key := range []string{"architectures", "compose_only", "manifest_tags"} {
			if err := backend.SetOutput(key, extras[key]); err != nil {
				return err
			}
		}
		return nil

	case "woodpecker", "gitlab":
		return ci.Detect(rootDir).OutputMatrix(matrix)

	case "json":
		if len(matrix) == 0 {
			log.Warn().Msg("no variants detected")
			return nil
		}
		payload, err := matrixIndentJSON(matrix)
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, payload)
		return nil

	default:
		return fmt.Errorf("unknown format %q (valid: json, github, woodpecker, gitlab, human)", detectFormat)
	}
}

func matrixIndentJSON(matrix []ci.MatrixEntry) (string, error) {
	data, err := json.MarshalIndent(map[string]any{"include": matrix}, "", "  ")
	return string(data), err
}
