package podman

import "context"

// SkopeoCopy copies an image between registries without pulling it into
// local storage.
func (c *Client) SkopeoCopy(ctx context.Context, src, dest string) error {
	_, err := c.run(ctx, "skopeo", "copy", "--all", "docker://"+src, "docker://"+dest)
	return err
}

// SkopeoInspect returns the raw JSON description of a remote image.
func (c *Client) SkopeoInspect(ctx context.Context, ref string) (string, error) {
	return c.run(ctx, "skopeo", "inspect", "docker://"+ref)
}
