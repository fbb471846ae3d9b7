package podman

import "context"

// Manifest-list operations for multi-arch tags.

// ManifestRm removes a manifest list if it exists (best-effort).
func (c *Client) ManifestRm(ctx context.Context, name string) {
	_, _ = c.run(ctx, "podman", "manifest", "rm", name)
}

// ManifestCreate creates a new, empty manifest list.
func (c *Client) ManifestCreate(ctx context.Context, name string) error {
	_, err := c.run(ctx, "podman", "manifest", "create", name)
	return err
}

// ManifestAdd adds an image to a manifest list.
func (c *Client) ManifestAdd(ctx context.Context, manifest, ref string) error {
	_, err := c.run(ctx, "podman", "manifest", "add", manifest, "docker://"+ref)
	return err
}

// ManifestPush pushes a manifest list and all its members to the registry.
func (c *Client) ManifestPush(ctx context.Context, manifest string) error {
	_, err := c.run(ctx, "podman", "manifest", "push", "--all", manifest, "docker://"+manifest)
	return err
}

// RemoteImageExists checks whether ref is resolvable in a remote
// registry via skopeo. Used before composing manifests from images that
// may only exist remotely.
func (c *Client) RemoteImageExists(ctx context.Context, ref string) bool {
	_, err := c.SkopeoInspect(ctx, ref)
	return err == nil
}
