package ci

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearCIEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_ACTIONS", "CI_PIPELINE_ID", "GITLAB_CI"} {
		t.Setenv(key, "")
	}
}

func TestDetectOrder(t *testing.T) {
	clearCIEnv(t)
	assert.Equal(t, "local", Detect(".").Name())

	t.Setenv("GITLAB_CI", "true")
	assert.Equal(t, "gitlab", Detect(".").Name())

	// Woodpecker sets CI_PIPELINE_ID and wins over GitLab detection.
	t.Setenv("CI_PIPELINE_ID", "42")
	assert.Equal(t, "woodpecker", Detect(".").Name())

	t.Setenv("GITHUB_ACTIONS", "true")
	assert.Equal(t, "github", Detect(".").Name())
}

func TestGitHubSetOutput(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", outFile)

	g := &GitHub{}
	require.NoError(t, g.SetOutput("compose_only", "false"))
	require.NoError(t, g.SetOutput("matrix", "{\n  \"include\": []\n}"))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "compose_only=false\n")
	assert.Contains(t, content, "matrix<<DBUILD_EOF\n")
	assert.Contains(t, content, "}\nDBUILD_EOF\n")
}

func TestGitHubSetOutputRequiresEnv(t *testing.T) {
	t.Setenv("GITHUB_OUTPUT", "")

	g := &GitHub{}
	err := g.SetOutput("key", "value")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GITHUB_OUTPUT")
}

func TestGitHubOutputMatrixCompact(t *testing.T) {
	outFile := filepath.Join(t.TempDir(), "output")
	t.Setenv("GITHUB_OUTPUT", outFile)

	g := &GitHub{}
	entries := []MatrixEntry{{Tag: "latest", Containerfile: "Containerfile", Arch: "amd64",
		Args: map[string]string{}, Aliases: []string{}}}
	require.NoError(t, g.OutputMatrix(entries))

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	// Compact JSON on a single line, so no heredoc framing.
	assert.Contains(t, string(data), `matrix={"include":[{"tag":"latest"`)
}

func TestGitHubIsPR(t *testing.T) {
	t.Setenv("GITHUB_EVENT_NAME", "pull_request")
	g := &GitHub{}
	assert.True(t, g.IsPR())

	t.Setenv("GITHUB_EVENT_NAME", "push")
	assert.False(t, g.IsPR())
}

func TestGitHubCommitMessageOverride(t *testing.T) {
	t.Setenv("DBUILD_COMMIT_MESSAGE", "bump [skip test]")
	g := &GitHub{}
	assert.Equal(t, "bump [skip test]", g.CommitMessage())
}

func TestGitHubMetadataRunURL(t *testing.T) {
	t.Setenv("GITHUB_SERVER_URL", "")
	t.Setenv("GITHUB_REPOSITORY", "daemonless/radarr")
	t.Setenv("GITHUB_RUN_ID", "99")
	t.Setenv("GITHUB_SHA", "abc123")
	t.Setenv("GITHUB_REF_NAME", "main")
	t.Setenv("GITHUB_EVENT_NAME", "push")

	meta := (&GitHub{}).Metadata()
	assert.Equal(t, "https://github.com/daemonless/radarr/actions/runs/99", meta["run_url"])
	assert.Equal(t, "abc123", meta["sha"])
	assert.Equal(t, "main", meta["branch"])
}

func TestWoodpeckerBackend(t *testing.T) {
	t.Setenv("CI_PIPELINE_EVENT", "pull_request")
	t.Setenv("CI_COMMIT_MESSAGE", "fix run script [skip sbom]")
	t.Setenv("GITHUB_TOKEN", "tok")

	w := &Woodpecker{}
	assert.Equal(t, "woodpecker", w.Name())
	assert.True(t, w.IsPR())
	assert.Equal(t, "fix run script [skip sbom]", w.CommitMessage())
	assert.Equal(t, "tok", w.Token())

	t.Setenv("CI_PIPELINE_EVENT", "push")
	assert.False(t, w.IsPR())
}

func TestGitLabBackend(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("CI_JOB_TOKEN", "jobtok")
	t.Setenv("CI_MERGE_REQUEST_ID", "7")

	g := &GitLab{}
	assert.Equal(t, "gitlab", g.Name())
	assert.Equal(t, "jobtok", g.Token())
	assert.True(t, g.IsPR())

	t.Setenv("CI_MERGE_REQUEST_ID", "")
	assert.False(t, g.IsPR())
}
