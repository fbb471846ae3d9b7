// Package publish tags and pushes built images to their registries.
//
// Each (variant, arch) pair pushes the primary tag, every alias, and a
// versioned tag read off the image's OCI labels. amd64 owns the bare
// tags; other architectures push "-{arch}" suffixed tags that the
// manifest step later folds into multi-arch lists.
package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/config"
	"github.com/daemonless/dbuild/src/labels"
	"github.com/daemonless/dbuild/src/podman"
	"github.com/daemonless/dbuild/src/registry"
)

// ArchSuffix returns the push tag suffix for arch (empty for amd64).
func ArchSuffix(arch string) string {
	if arch == "amd64" {
		return ""
	}
	return "-" + arch
}

// VersionTag builds a versioned tag like "32.0.5" or "32.0.5-pkg".
// A leading "v" is stripped and the remainder normalized when it parses
// as semver; otherwise it is used as-is.
func VersionTag(version, variantTag string) string {
	v := strings.TrimPrefix(version, "v")
	if sv, err := semver.NewVersion(v); err == nil {
		v = sv.String()
	}
	if variantTag == "latest" {
		return v
	}
	return v + "-" + variantTag
}

// CollectTags returns every tag to push for a variant and arch: the
// primary tag first, then aliases, then the versioned tag. Duplicates
// collapse.
func CollectTags(v config.Variant, arch, version string) []string {
	suffix := ArchSuffix(arch)
	tags := []string{v.Tag + suffix}
	for _, alias := range v.Aliases {
		tags = appendUnique(tags, alias+suffix)
	}
	if version != "" {
		tags = appendUnique(tags, VersionTag(version, v.Tag)+suffix)
	}
	return tags
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if t == tag {
			return tags
		}
	}
	return append(tags, tag)
}

// Publisher pushes variants to the primary registry and optionally
// mirrors them to a secondary one.
type Publisher struct {
	Client  *podman.Client
	Primary registry.Client
	Mirror  registry.Client // nil disables mirroring
	Log     zerolog.Logger
}

// Push tags the variant's build image with its final tags and pushes
// each one to the primary registry. Returns the pushed tags.
func (p *Publisher) Push(ctx context.Context, cfg *config.Config, v config.Variant, arch string) ([]string, error) {
	buildRef := fmt.Sprintf("%s:build-%s", cfg.FullImage(), v.Tag)
	if !p.Client.ImageExists(ctx, buildRef) {
		return nil, fmt.Errorf("image %s not found, build it first", buildRef)
	}

	version := p.Client.InspectLabels(ctx, buildRef)[labels.VersionLabel]
	tags := CollectTags(v, arch, version)

	p.Log.Info().Str("tag", v.Tag).Strs("tags", tags).Msg("pushing variant")
	for _, tag := range tags {
		finalRef := cfg.FullImage() + ":" + tag
		if err := p.Client.Tag(ctx, buildRef, finalRef); err != nil {
			return nil, err
		}
		if err := p.Primary.Push(ctx, cfg.FullImage(), tag); err != nil {
			return nil, err
		}
	}
	return tags, nil
}

// MirrorTags copies already-pushed tags to the mirror registry, mapping
// the primary registry prefix to the mirror's.
func (p *Publisher) MirrorTags(ctx context.Context, cfg *config.Config, tags []string) error {
	if p.Mirror == nil {
		return nil
	}
	for _, tag := range tags {
		src := cfg.FullImage() + ":" + tag
		dest := strings.Replace(src, cfg.Registry, p.Mirror.URL(), 1)
		if err := p.Mirror.Copy(ctx, src, dest); err != nil {
			return err
		}
	}
	return nil
}
