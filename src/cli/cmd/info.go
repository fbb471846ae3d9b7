package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/labels"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/podman"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show project configuration and local images",
	RunE: func(cmd *cobra.Command, args []string) error {
		matrix := ci.BuildMatrix(cfg, variants, flagVariant, flagArch)
		return printOverview(matrix)
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

type imageRow struct {
	tag     string
	version string
	size    string
	age     string
}

func printOverview(matrix []ci.MatrixEntry) error {
	if len(matrix) == 0 {
		log.Warn().Msg("no variants detected")
		return nil
	}

	color := output.UseColor()
	s := output.NewSection(os.Stdout, cfg.FullImage(), 0, color)
	s.Row("type           %s", cfg.Type)
	s.Row("architectures  %s", strings.Join(cfg.Architectures(), ", "))
	s.Row("variants       %d", len(variants))
	s.Separator()
	for _, entry := range matrix {
		s.Row("%-16s %-10s %s", ":"+entry.Tag, entry.Arch, entry.Containerfile)
		for k, v := range entry.Args {
			s.Row("  %s=%s", k, v)
		}
		if len(entry.Aliases) > 0 {
			s.Row("  aliases: %s", strings.Join(entry.Aliases, ", "))
		}
	}
	if cfg.Test != nil {
		s.Separator()
		s.Row("cit: mode=%s port=%d health=%s", cfg.Test.Mode, cfg.Test.Port, cfg.Test.Health)
	}
	s.Close()

	return printLocalImages(color)
}

// printLocalImages splits local images into pushed tags and build cache
// (build-{tag} intermediates).
func printLocalImages(color bool) error {
	pd := newPodman()
	imgs, err := pd.Images(context.Background(), cfg.FullImage())
	if err != nil || len(imgs) == 0 {
		fmt.Fprintln(os.Stdout, "    local images: none")
		return nil
	}

	buildTags := map[string]bool{}
	for _, v := range variants {
		buildTags["build-"+v.Tag] = true
	}

	var pushed, cache []imageRow
	for _, img := range imgs {
		row := imageRow{
			tag:     imageTag(img),
			version: img.Labels[labels.VersionLabel],
			size:    formatSize(img.Size),
			age:     formatAge(img.Created),
		}
		if buildTags[row.tag] {
			cache = append(cache, row)
		} else {
			pushed = append(pushed, row)
		}
	}

	s := output.NewSection(os.Stdout, "Local images", 0, color)
	writeRows := func(title string, rows []imageRow) {
		if len(rows) == 0 {
			return
		}
		s.Row("%s", output.Dimmed(title, color))
		for _, r := range rows {
			line := fmt.Sprintf("  :%-20s %10s  %8s", r.tag, r.size, r.age)
			if r.version != "" {
				line += "  " + output.Dimmed(r.version, color)
			}
			s.Row("%s", line)
		}
	}
	writeRows("pushed", pushed)
	writeRows("build cache", cache)
	s.Close()
	return nil
}

func imageTag(img podman.ImageInfo) string {
	for _, name := range img.Names {
		if idx := strings.LastIndex(name, ":"); idx >= 0 {
			return name[idx+1:]
		}
	}
	return "none"
}

func formatSize(bytes int64) string {
	switch {
	case bytes >= 1_000_000_000:
		return fmt.Sprintf("%.1f GB", float64(bytes)/1_000_000_000)
	case bytes >= 1_000_000:
		return fmt.Sprintf("%.0f MB", float64(bytes)/1_000_000)
	default:
		return fmt.Sprintf("%.0f KB", float64(bytes)/1_000)
	}
}

func formatAge(created int64) string {
	delta := time.Since(time.Unix(created, 0))
	switch {
	case delta < time.Minute:
		return "just now"
	case delta < time.Hour:
		return fmt.Sprintf("%dm ago", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(delta.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(delta.Hours()/24))
	}
}
