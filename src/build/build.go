// Package build turns a variant into a locally tagged build image:
// maps the architecture, runs podman build, extracts the application
// version, and bakes the standard OCI labels back into the image.
package build

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/config"
	"github.com/daemonless/dbuild/src/labels"
	"github.com/daemonless/dbuild/src/podman"
)

// archMap normalizes user-supplied architecture names to the FreeBSD
// convention passed to Containerfiles as FREEBSD_ARCH.
var archMap = map[string]string{
	"amd64":   "amd64",
	"x86_64":  "amd64",
	"x64":     "amd64",
	"arm64":   "aarch64",
	"aarch64": "aarch64",
	"riscv64": "riscv64",
	"riscv":   "riscv64",
}

// MapArch normalizes arch to the FreeBSD convention.
func MapArch(arch string) (string, error) {
	mapped, ok := archMap[arch]
	if !ok {
		supported := map[string]bool{}
		for _, v := range archMap {
			supported[v] = true
		}
		names := make([]string, 0, len(supported))
		for v := range supported {
			names = append(names, v)
		}
		sort.Strings(names)
		return "", fmt.Errorf("unknown architecture %q (supported: %s)", arch, strings.Join(names, ", "))
	}
	return mapped, nil
}

// Error wraps a failed build with the variant it belongs to.
type Error struct {
	Tag string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("build :%s: %v", e.Tag, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Builder builds variants via podman.
type Builder struct {
	Client *podman.Client
	Log    zerolog.Logger
	Root   string
}

// Build builds one variant for one architecture and returns the local
// build reference ({image}:build-{tag}).
func (b *Builder) Build(ctx context.Context, cfg *config.Config, v config.Variant, arch string) (string, error) {
	freebsdArch, err := MapArch(arch)
	if err != nil {
		return "", &Error{Tag: v.Tag, Err: err}
	}

	buildRef := fmt.Sprintf("%s:build-%s", cfg.FullImage(), v.Tag)
	b.Log.Info().
		Str("tag", v.Tag).
		Str("arch", freebsdArch).
		Str("containerfile", v.Containerfile).
		Msg("building image")

	buildArgs := map[string]string{"FREEBSD_ARCH": freebsdArch}
	for k, val := range v.Args {
		if _, exists := buildArgs[k]; !exists {
			buildArgs[k] = val
		}
	}

	secrets := map[string]string{}
	if os.Getenv("GITHUB_TOKEN") != "" {
		secrets["github_token"] = "GITHUB_TOKEN"
	}

	start := time.Now()
	err = b.Client.Build(ctx, podman.BuildRequest{
		Containerfile: v.Containerfile,
		Tag:           buildRef,
		BuildArgs:     buildArgs,
		Secrets:       secrets,
		ContextDir:    b.Root,
	})
	if err != nil {
		return "", &Error{Tag: v.Tag, Err: err}
	}
	b.Log.Info().Str("tag", v.Tag).Dur("elapsed", time.Since(start)).Msg("build complete")

	version := b.extractVersion(ctx, buildRef, cfg.Type)
	if version != "" {
		b.Log.Info().Str("version", version).Msg("detected version")
	} else {
		b.Log.Warn().Msg("no version detected")
	}

	if err := b.applyLabels(ctx, buildRef, version, v.Tag); err != nil {
		return "", &Error{Tag: v.Tag, Err: fmt.Errorf("applying labels: %w", err)}
	}

	return buildRef, nil
}

// extractVersion reads the version from inside the image: /app/version
// for app images, freebsd-version for base images.
func (b *Builder) extractVersion(ctx context.Context, buildRef, imageType string) string {
	var cmd []string
	if imageType == "base" {
		cmd = []string{"freebsd-version"}
	} else {
		cmd = []string{"cat", "/app/version"}
	}
	out, err := b.Client.RunIn(ctx, buildRef, cmd)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(out)
}

// applyLabels commits the standard OCI labels onto the build image via
// a buildah working container.
func (b *Builder) applyLabels(ctx context.Context, buildRef, version, variantTag string) error {
	oci := labels.ForBuild(b.Root, version, variantTag, time.Now())

	containerID, err := b.Client.BuildahFrom(ctx, buildRef)
	if err != nil {
		return err
	}
	defer func() { _ = b.Client.BuildahRm(context.WithoutCancel(ctx), containerID) }()

	if err := b.Client.BuildahConfig(ctx, containerID, oci); err != nil {
		return err
	}
	return b.Client.BuildahCommit(ctx, containerID, buildRef)
}
