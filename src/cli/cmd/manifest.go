package cmd

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/manifest"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/registry"
)

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Create and push multi-arch manifests",
	Long: `Fold pushed architecture-specific tags into multi-arch manifest
lists: the bare tag points at amd64 plus suffixed members like -arm64.
With a single configured architecture there is nothing to compose.`,
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)
}

func runManifest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}

	arches := cfg.Architectures()
	if len(arches) < 2 {
		log.Warn().Strs("architectures", arches).
			Msg("single architecture configured, nothing to compose")
		return nil
	}

	pd := newPodman()
	backend := ci.Detect(rootDir)
	token := backend.Token()
	actor := backend.Actor()
	primary := registry.ForURL(pd, log, cfg.Registry)
	if token != "" && actor != "" {
		if err := primary.Login(ctx, token, actor); err != nil {
			return err
		}
	} else {
		log.Warn().Msg("no token/actor available, assuming already logged in")
	}

	pub := &manifest.Publisher{Client: pd, Log: log}
	color := output.UseColor()
	start := time.Now()

	var created []string
	for _, v := range vs {
		specs, err := manifest.Plan(cfg.FullImage(), v, arches, func(ref string) bool {
			return pub.Available(ctx, ref)
		})
		if err != nil {
			// Missing architecture images mean the pushes have not all
			// landed yet; skip the variant rather than fail the run.
			var insufficient *manifest.InsufficientArchitecturesError
			if errors.As(err, &insufficient) {
				log.Warn().Str("tag", v.Tag).Msg(insufficient.Error())
				continue
			}
			return err
		}
		for _, spec := range specs {
			if err := pub.Push(ctx, spec); err != nil {
				return err
			}
			created = append(created, spec.Tag)
		}
	}

	s := output.NewSection(os.Stdout, "Manifest summary", time.Since(start), color)
	for _, tag := range created {
		s.Row("%s %s", output.StatusIcon("success", color), tag)
	}
	s.Close()
	return nil
}
