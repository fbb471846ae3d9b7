package podman

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"
)

// RunDetached starts a container in the background and returns its ID.
func (c *Client) RunDetached(ctx context.Context, image, name string, annotations map[string]string) (string, error) {
	args := []string{"podman", "run", "-d", "--name", name, "--network=podman"}
	for _, k := range sortedKeys(annotations) {
		args = append(args, "--annotation", fmt.Sprintf("%s=%s", k, annotations[k]))
	}
	args = append(args, image)
	out, err := c.run(ctx, args...)
	return strings.TrimSpace(out), err
}

// InspectIP returns the IP address of a running container.
func (c *Client) InspectIP(ctx context.Context, name string) (string, error) {
	out, err := c.run(ctx, "podman", "inspect", "--format",
		"{{range .NetworkSettings.Networks}}{{.IPAddress}}{{end}}", name)
	return strings.TrimSpace(out), err
}

// ContainerRunning reports whether the named container is running.
func (c *Client) ContainerRunning(ctx context.Context, name string) (bool, error) {
	out, err := c.run(ctx, "podman", "ps", "-q", "--filter", "name="+name)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// Logs returns the container's current log output, stdout and stderr
// merged. Best effort: a stopped container still has useful logs, so
// the command's exit status is ignored.
func (c *Client) Logs(ctx context.Context, name string) (string, error) {
	full := append(append([]string{}, c.privPrefix...), "podman", "logs", name)
	out, _ := commandContext(ctx, full).CombinedOutput()
	return string(out), nil
}

// Exec runs a command inside a running container.
func (c *Client) Exec(ctx context.Context, name string, cmd []string) error {
	args := append([]string{"podman", "exec", name}, cmd...)
	_, err := c.run(ctx, args...)
	return err
}

// Stop stops a running container. Errors are returned but callers on
// teardown paths typically ignore them.
func (c *Client) Stop(ctx context.Context, name string) error {
	_, err := c.run(ctx, "podman", "stop", name)
	return err
}

// Rm force-removes a container.
func (c *Client) Rm(ctx context.Context, name string) error {
	_, err := c.run(ctx, "podman", "rm", "-f", name)
	return err
}

// Compose stack operations via podman-compose.

func (c *Client) ComposeUp(ctx context.Context, file string) error {
	return c.stream(ctx, "podman-compose", "-f", file, "up", "-d")
}

func (c *Client) ComposeDown(ctx context.Context, file string) error {
	_, err := c.run(ctx, "podman-compose", "-f", file, "down")
	return err
}

func (c *Client) ComposeLogs(ctx context.Context, file string) (string, error) {
	out, _ := c.run(ctx, "podman-compose", "-f", file, "logs", "--tail", "20")
	return out, nil
}

// ComposeAvailable reports whether podman-compose is installed.
func ComposeAvailable() bool {
	_, err := exec.LookPath("podman-compose")
	return err == nil
}

func commandContext(ctx context.Context, full []string) *exec.Cmd {
	return exec.CommandContext(ctx, full[0], full[1:]...)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
