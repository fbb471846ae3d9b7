package registry

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/podman"
)

// Push attempts before giving up. Registries shed load with transient
// 5xx responses, so a couple of retries clears most failures.
const pushAttempts = 3

// Generic works with any OCI-compliant registry via podman and skopeo.
type Generic struct {
	pd  *podman.Client
	log zerolog.Logger
	url string
}

func (g *Generic) URL() string { return g.url }

// host strips the org/path part off the registry prefix for login.
func (g *Generic) host() string {
	host, _, _ := strings.Cut(g.url, "/")
	return host
}

func (g *Generic) Login(ctx context.Context, token, actor string) error {
	host := g.host()
	g.log.Info().Str("registry", host).Str("actor", actor).Msg("logging in")
	if err := g.pd.Login(ctx, host, actor, token); err != nil {
		return &Error{Op: "login", Ref: host, Err: err}
	}
	return nil
}

func (g *Generic) Push(ctx context.Context, image, tag string) error {
	ref := image + ":" + tag
	var err error
	for attempt := 1; attempt <= pushAttempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * 2 * time.Second
			g.log.Warn().Str("ref", ref).Int("attempt", attempt).Err(err).
				Msgf("push failed, retrying in %s", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = g.pd.Push(ctx, ref); err == nil {
			g.log.Info().Str("ref", ref).Msg("pushed")
			return nil
		}
	}
	return &Error{Op: "push", Ref: ref, Err: err}
}

func (g *Generic) Copy(ctx context.Context, src, dest string) error {
	g.log.Info().Str("src", src).Str("dest", dest).Msg("copying image")
	if err := g.pd.SkopeoCopy(ctx, src, dest); err != nil {
		return &Error{Op: "copy", Ref: dest, Err: err}
	}
	return nil
}
