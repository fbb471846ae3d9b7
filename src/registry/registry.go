// Package registry abstracts over OCI registries. Use ForURL to obtain
// a backend; push and copy route through podman and skopeo.
package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/podman"
)

// Client is one OCI registry.
type Client interface {
	// URL returns the registry prefix (e.g. ghcr.io/daemonless).
	URL() string
	// Login authenticates to the registry.
	Login(ctx context.Context, token, actor string) error
	// Push pushes image:tag. The image must already carry the tag locally.
	Push(ctx context.Context, image, tag string) error
	// Copy transfers an image registry-to-registry without a local pull.
	Copy(ctx context.Context, src, dest string) error
}

// Error wraps a failed registry operation with enough context to report.
type Error struct {
	Op  string
	Ref string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Ref, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ForURL returns the backend matching a registry URL or prefix.
// Credentials are passed to Login, not held by the client.
func ForURL(pd *podman.Client, log zerolog.Logger, url string) Client {
	base := &Generic{pd: pd, log: log, url: url}
	switch {
	case strings.Contains(url, "ghcr.io"):
		return &GHCR{Generic: base}
	case strings.Contains(url, "docker.io") || strings.Contains(url, "registry-1.docker.io"):
		return &DockerHub{Generic: base}
	default:
		return base
	}
}
