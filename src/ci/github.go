package ci

import (
	"fmt"
	"os"
	"strings"

	"github.com/daemonless/dbuild/src/gitmeta"
)

// GitHub is the GitHub Actions backend. Outputs go to the file named by
// $GITHUB_OUTPUT using the key=value or heredoc delimiter protocol.
type GitHub struct {
	root string
}

func (g *GitHub) Name() string  { return "github" }
func (g *GitHub) Token() string { return os.Getenv("GITHUB_TOKEN") }
func (g *GitHub) Actor() string { return os.Getenv("GITHUB_ACTOR") }

func (g *GitHub) IsPR() bool {
	return os.Getenv("GITHUB_EVENT_NAME") == "pull_request"
}

// CommitMessage prefers DBUILD_COMMIT_MESSAGE (settable by the
// workflow, since Actions exposes no commit-message variable) and falls
// back to the checked-out repository head.
func (g *GitHub) CommitMessage() string {
	if msg := os.Getenv("DBUILD_COMMIT_MESSAGE"); msg != "" {
		return msg
	}
	return strings.TrimSpace(gitmeta.HeadMessage(g.root))
}

// OutputMatrix writes the matrix under the "matrix" key, compatible
// with fromJson() in a workflow expression.
func (g *GitHub) OutputMatrix(entries any) error {
	payload, err := matrixJSON(entries, true)
	if err != nil {
		return err
	}
	return g.SetOutput("matrix", string(payload))
}

func (g *GitHub) SetOutput(key, value string) error {
	outputFile := os.Getenv("GITHUB_OUTPUT")
	if outputFile == "" {
		return fmt.Errorf("GITHUB_OUTPUT is not set, cannot write output %q", key)
	}
	f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening GITHUB_OUTPUT: %w", err)
	}
	defer f.Close()

	if strings.Contains(value, "\n") {
		if !strings.HasSuffix(value, "\n") {
			value += "\n"
		}
		_, err = fmt.Fprintf(f, "%s<<DBUILD_EOF\n%sDBUILD_EOF\n", key, value)
	} else {
		_, err = fmt.Fprintf(f, "%s=%s\n", key, value)
	}
	return err
}

func (g *GitHub) Metadata() map[string]string {
	meta := map[string]string{}
	setIfEnv(meta, "sha", "GITHUB_SHA")
	setIfEnv(meta, "branch", "GITHUB_REF_NAME")
	setIfEnv(meta, "repo", "GITHUB_REPOSITORY")
	setIfEnv(meta, "event", "GITHUB_EVENT_NAME")

	repo := os.Getenv("GITHUB_REPOSITORY")
	runID := os.Getenv("GITHUB_RUN_ID")
	if repo != "" && runID != "" {
		server := os.Getenv("GITHUB_SERVER_URL")
		if server == "" {
			server = "https://github.com"
		}
		meta["run_url"] = fmt.Sprintf("%s/%s/actions/runs/%s", server, repo, runID)
	}
	return meta
}

func setIfEnv(meta map[string]string, key, env string) {
	if v := os.Getenv(env); v != "" {
		meta[key] = v
	}
}
