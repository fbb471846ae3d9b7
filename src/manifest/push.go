package manifest

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/podman"
)

// Publisher creates and pushes manifest lists via podman.
type Publisher struct {
	Client *podman.Client
	Log    zerolog.Logger
}

// Available reports whether ref exists locally or in a remote registry.
func (p *Publisher) Available(ctx context.Context, ref string) bool {
	if p.Client.ImageExists(ctx, ref) {
		return true
	}
	return p.Client.RemoteImageExists(ctx, ref)
}

// Push assembles one manifest list and pushes it. Any stale local
// manifest with the same name is removed first.
func (p *Publisher) Push(ctx context.Context, spec Spec) error {
	p.Log.Info().Str("manifest", spec.Tag).Int("members", len(spec.Members)).Msg("creating manifest")

	p.Client.ManifestRm(ctx, spec.Tag)
	if err := p.Client.ManifestCreate(ctx, spec.Tag); err != nil {
		return err
	}
	for _, ref := range spec.Members {
		p.Log.Info().Str("ref", ref).Msg("adding to manifest")
		if err := p.Client.ManifestAdd(ctx, spec.Tag, ref); err != nil {
			return err
		}
	}
	if err := p.Client.ManifestPush(ctx, spec.Tag); err != nil {
		return err
	}
	p.Log.Info().Str("manifest", spec.Tag).Msg("pushed manifest")
	return nil
}
