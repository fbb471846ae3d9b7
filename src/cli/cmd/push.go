package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/daemonless/dbuild/src/ci"
	"github.com/daemonless/dbuild/src/output"
	"github.com/daemonless/dbuild/src/podman"
	"github.com/daemonless/dbuild/src/publish"
	"github.com/daemonless/dbuild/src/registry"
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push built images to the registry",
	Long: `Tag build images with their final tags (primary, aliases, version)
and push to the primary registry. When DOCKERHUB_USERNAME and
DOCKERHUB_TOKEN are set, images are mirrored to Docker Hub.

Honours [skip push] and [skip push:dockerhub] commit directives; PR
builds never push.`,
	RunE: runPush,
}

func init() {
	rootCmd.AddCommand(pushCmd)
}

func runPush(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	vs := filteredVariants()
	if err := requireVariants(vs); err != nil {
		return err
	}

	backend := ci.Detect(rootDir)
	skips := skipDirectives(backend)

	if skips.Has("push") {
		log.Info().Msg("skipping push ([skip push] in commit message)")
		return nil
	}
	if backend.IsPR() {
		log.Warn().Msg("pull-request build, skipping push")
		return nil
	}

	pd := newPodman()
	pub, err := setupPublisher(ctx, pd, backend, skips)
	if err != nil {
		return err
	}

	arch := targetArch()
	color := output.UseColor()
	start := time.Now()

	var pushed []string
	for _, v := range vs {
		tags, err := pub.Push(ctx, cfg, v, arch)
		if err != nil {
			return err
		}
		if err := pub.MirrorTags(ctx, cfg, tags); err != nil {
			return err
		}
		pushed = append(pushed, v.Tag)
	}

	// Docker Hub renders the repository description from README.md;
	// refresh it once the mirror copies have landed.
	if hub, ok := pub.Mirror.(*registry.DockerHub); ok {
		syncHubDescription(ctx, hub)
	}

	s := output.NewSection(os.Stdout, "Push summary", time.Since(start), color)
	for _, tag := range pushed {
		s.Row("%s :%s", output.StatusIcon("success", color), tag)
	}
	s.Close()
	return nil
}

// syncHubDescription pushes the project README to the mirrored Docker
// Hub repository. The images are already mirrored, so failures only warn.
func syncHubDescription(ctx context.Context, hub *registry.DockerHub) {
	readme, err := os.ReadFile(filepath.Join(rootDir, "README.md"))
	if err != nil {
		return
	}
	_, org, _ := strings.Cut(hub.URL(), "/")
	repo := org + "/" + cfg.Image
	if err := hub.UpdateDescription(ctx, repo, string(readme),
		settings.DockerHubUsername, settings.DockerHubToken); err != nil {
		log.Warn().Err(err).Msg("Docker Hub description update failed")
	}
}

// skipDirectives parses [skip ...] directives off the commit message.
func skipDirectives(backend ci.Backend) ci.SkipSet {
	msg := settings.CommitMessage
	if msg == "" {
		msg = backend.CommitMessage()
	}
	return ci.ParseSkipDirectives(msg)
}

// setupPublisher logs in to the primary registry and, when Docker Hub
// credentials are configured and not skipped, the mirror.
func setupPublisher(ctx context.Context, pd *podman.Client, backend ci.Backend, skips ci.SkipSet) (*publish.Publisher, error) {
	token := backend.Token()
	actor := backend.Actor()

	primary := registry.ForURL(pd, log, cfg.Registry)
	if token != "" && actor != "" {
		if err := primary.Login(ctx, token, actor); err != nil {
			return nil, err
		}
	} else {
		log.Warn().Msg("no token/actor available, assuming already logged in (set GITHUB_TOKEN / GITHUB_ACTOR)")
	}

	var mirror registry.Client
	switch {
	case skips.Has("push:dockerhub"):
		log.Info().Msg("skipping Docker Hub mirror ([skip push:dockerhub] in commit message)")
	case settings.DockerHubUsername != "" && settings.DockerHubToken != "":
		log.Info().Msg("Docker Hub mirroring enabled")
		// Mirror into the same org as the primary registry when one is
		// present (ghcr.io/daemonless -> docker.io/daemonless).
		org := settings.DockerHubUsername
		if _, orgPart, ok := strings.Cut(cfg.Registry, "/"); ok && orgPart != "" {
			org = orgPart
		}
		mirror = registry.ForURL(pd, log, "docker.io/"+org)
		if err := mirror.Login(ctx, settings.DockerHubToken, settings.DockerHubUsername); err != nil {
			return nil, err
		}
	}

	return &publish.Publisher{Client: pd, Primary: primary, Mirror: mirror, Log: log}, nil
}
