package podman

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// BuildRequest describes a single podman build invocation.
type BuildRequest struct {
	Containerfile string
	Tag           string
	BuildArgs     map[string]string
	Secrets       map[string]string // secret id -> env var name
	ContextDir    string
	Network       string
}

// Build runs podman build, streaming output so the user sees progress.
func (c *Client) Build(ctx context.Context, req BuildRequest) error {
	network := req.Network
	if network == "" {
		network = "host"
	}
	contextDir := req.ContextDir
	if contextDir == "" {
		contextDir = "."
	}

	args := []string{
		"podman", "build",
		"-f", req.Containerfile,
		"-t", req.Tag,
		"--network=" + network,
	}
	for _, k := range sortedKeys(req.BuildArgs) {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, req.BuildArgs[k]))
	}
	for _, id := range sortedKeys(req.Secrets) {
		args = append(args, "--secret", fmt.Sprintf("id=%s,env=%s", id, req.Secrets[id]))
	}
	args = append(args, contextDir)

	return c.stream(ctx, args...)
}

// Tag applies an additional tag to an image.
func (c *Client) Tag(ctx context.Context, src, dest string) error {
	_, err := c.run(ctx, "podman", "tag", src, dest)
	return err
}

// Push pushes an image reference to its registry.
func (c *Client) Push(ctx context.Context, ref string) error {
	_, err := c.run(ctx, "podman", "push", ref)
	return err
}

// Login authenticates against a registry, passing the password on stdin.
func (c *Client) Login(ctx context.Context, host, username, password string) error {
	full := append(append([]string{}, c.privPrefix...),
		"podman", "login", host, "-u", username, "--password-stdin")
	if c.Verbose {
		fmt.Fprintf(c.Stderr, "exec: %s\n", strings.Join(full, " "))
	}
	cmd := commandContext(ctx, full)
	cmd.Stdin = strings.NewReader(password)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &Error{Cmd: full, ExitCode: cmd.ProcessState.ExitCode(), Stderr: strings.TrimSpace(string(out))}
	}
	return nil
}

// ImageExists reports whether ref exists in local storage.
func (c *Client) ImageExists(ctx context.Context, ref string) bool {
	_, err := c.run(ctx, "podman", "image", "exists", ref)
	return err == nil
}

// InspectLabels returns all OCI labels of an image. A missing image or
// unparseable output yields an empty map, not an error: labels are
// advisory everywhere they are consumed.
func (c *Client) InspectLabels(ctx context.Context, ref string) map[string]string {
	out, err := c.run(ctx, "podman", "inspect", "--format", "{{json .Config.Labels}}", ref)
	if err != nil || strings.TrimSpace(out) == "" {
		return map[string]string{}
	}
	var labels map[string]string
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &labels); err != nil || labels == nil {
		return map[string]string{}
	}
	return labels
}

// RunIn runs a command inside a disposable container and returns stdout.
// The entrypoint is bypassed so init systems (s6-overlay) don't swallow
// the command.
func (c *Client) RunIn(ctx context.Context, image string, cmd []string) (string, error) {
	args := append([]string{"podman", "run", "--rm", "--entrypoint", "", image}, cmd...)
	out, err := c.run(ctx, args...)
	return strings.TrimSpace(out), err
}

// ImageInfo is one entry of podman images --format json.
type ImageInfo struct {
	Names   []string          `json:"Names"`
	Size    int64             `json:"Size"`
	Created int64             `json:"Created"`
	Labels  map[string]string `json:"Labels"`
}

// Images lists local images matching ref.
func (c *Client) Images(ctx context.Context, ref string) ([]ImageInfo, error) {
	out, err := c.run(ctx, "podman", "images", "--format", "json", ref)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	var imgs []ImageInfo
	if err := json.Unmarshal([]byte(out), &imgs); err != nil {
		return nil, fmt.Errorf("parsing podman images output: %w", err)
	}
	return imgs, nil
}
