package podman

import (
	"context"
	"fmt"
	"strings"
)

// Buildah working-container operations, used for post-build label
// injection and rootfs mounting (SBOM scans).

// BuildahFrom creates a working container from image. Returns its ID.
func (c *Client) BuildahFrom(ctx context.Context, image string) (string, error) {
	out, err := c.run(ctx, "buildah", "from", "--pull=never", image)
	return strings.TrimSpace(out), err
}

// BuildahConfig applies labels to a working container.
func (c *Client) BuildahConfig(ctx context.Context, containerID string, labels map[string]string) error {
	if len(labels) == 0 {
		return nil
	}
	args := []string{"buildah", "config"}
	for _, k := range sortedKeys(labels) {
		args = append(args, "--label", fmt.Sprintf("%s=%s", k, labels[k]))
	}
	args = append(args, containerID)
	_, err := c.run(ctx, args...)
	return err
}

// BuildahCommit commits a working container back to an image reference.
func (c *Client) BuildahCommit(ctx context.Context, containerID, image string) error {
	_, err := c.run(ctx, "buildah", "commit", containerID, image)
	return err
}

// BuildahRm removes a working container.
func (c *Client) BuildahRm(ctx context.Context, containerID string) error {
	_, err := c.run(ctx, "buildah", "rm", containerID)
	return err
}

// BuildahMount mounts a working container's rootfs and returns the path.
func (c *Client) BuildahMount(ctx context.Context, containerID string) (string, error) {
	out, err := c.run(ctx, "buildah", "mount", containerID)
	return strings.TrimSpace(out), err
}

// BuildahUmount unmounts a working container's rootfs.
func (c *Client) BuildahUmount(ctx context.Context, containerID string) error {
	_, err := c.run(ctx, "buildah", "umount", containerID)
	return err
}
