package cit

import (
	"context"

	"github.com/daemonless/dbuild/src/podman"
)

// Runtime starts and inspects the container (or stack) under test. The
// runner only needs this narrow surface, so tests can substitute fakes.
type Runtime interface {
	Start(ctx context.Context, image, name string, annotations map[string]string) error
	Running(ctx context.Context, name string) (bool, error)
	Exec(ctx context.Context, name string, cmd []string) error
	IP(ctx context.Context, name string) (string, error)
	Logs(ctx context.Context, name string) (string, error)
	Teardown(ctx context.Context, name string)
}

// containerRuntime runs a single container via podman.
type containerRuntime struct {
	client      *podman.Client
	annotations map[string]string
}

// NewContainerRuntime returns the podman-backed single-container runtime.
func NewContainerRuntime(client *podman.Client) Runtime {
	return &containerRuntime{client: client}
}

func (r *containerRuntime) Start(ctx context.Context, image, name string, annotations map[string]string) error {
	_, err := r.client.RunDetached(ctx, image, name, annotations)
	return err
}

func (r *containerRuntime) Running(ctx context.Context, name string) (bool, error) {
	return r.client.ContainerRunning(ctx, name)
}

func (r *containerRuntime) Exec(ctx context.Context, name string, cmd []string) error {
	return r.client.Exec(ctx, name, cmd)
}

func (r *containerRuntime) IP(ctx context.Context, name string) (string, error) {
	return r.client.InspectIP(ctx, name)
}

func (r *containerRuntime) Logs(ctx context.Context, name string) (string, error) {
	return r.client.Logs(ctx, name)
}

func (r *containerRuntime) Teardown(ctx context.Context, name string) {
	_ = r.client.Stop(ctx, name)
	_ = r.client.Rm(ctx, name)
}

// composeRuntime runs a multi-container stack via podman-compose. The
// stack publishes its service on localhost, so IP is fixed and the
// shell level degrades to checking the stack came up.
type composeRuntime struct {
	client *podman.Client
	file   string
}

// NewComposeRuntime returns a runtime backed by the given compose file.
// The image must already carry the tag the compose file references.
func NewComposeRuntime(client *podman.Client, file string) Runtime {
	return &composeRuntime{client: client, file: file}
}

func (r *composeRuntime) Start(ctx context.Context, image, name string, annotations map[string]string) error {
	return r.client.ComposeUp(ctx, r.file)
}

func (r *composeRuntime) Running(ctx context.Context, name string) (bool, error) {
	return true, nil
}

func (r *composeRuntime) Exec(ctx context.Context, name string, cmd []string) error {
	// No single container to exec into; the stack coming up stands in
	// for the shell check.
	return nil
}

func (r *composeRuntime) IP(ctx context.Context, name string) (string, error) {
	return "127.0.0.1", nil
}

func (r *composeRuntime) Logs(ctx context.Context, name string) (string, error) {
	return r.client.ComposeLogs(ctx, r.file)
}

func (r *composeRuntime) Teardown(ctx context.Context, name string) {
	_ = r.client.ComposeDown(ctx, r.file)
}
