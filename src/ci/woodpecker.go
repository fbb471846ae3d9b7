package ci

import (
	"fmt"
	"os"
)

// Woodpecker is the Woodpecker CI backend. Woodpecker has no structured
// output mechanism, so matrices and outputs are printed to stdout for
// downstream steps to consume.
type Woodpecker struct{}

func (w *Woodpecker) Name() string  { return "woodpecker" }
func (w *Woodpecker) Token() string { return os.Getenv("GITHUB_TOKEN") }

// Actor prefers a forwarded GITHUB_ACTOR secret, falling back to the
// commit author Woodpecker provides.
func (w *Woodpecker) Actor() string {
	if actor := os.Getenv("GITHUB_ACTOR"); actor != "" {
		return actor
	}
	return os.Getenv("CI_COMMIT_AUTHOR")
}

func (w *Woodpecker) IsPR() bool {
	return os.Getenv("CI_PIPELINE_EVENT") == "pull_request"
}

func (w *Woodpecker) CommitMessage() string {
	return os.Getenv("CI_COMMIT_MESSAGE")
}

func (w *Woodpecker) OutputMatrix(entries any) error {
	payload, err := matrixJSON(entries, false)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(payload))
	return err
}

func (w *Woodpecker) SetOutput(key, value string) error {
	_, err := fmt.Fprintf(os.Stdout, "%s=%s\n", key, value)
	return err
}

func (w *Woodpecker) Metadata() map[string]string {
	meta := map[string]string{}
	setIfEnv(meta, "sha", "CI_COMMIT_SHA")
	setIfEnv(meta, "branch", "CI_COMMIT_BRANCH")
	setIfEnv(meta, "repo", "CI_REPO")
	setIfEnv(meta, "run_url", "CI_PIPELINE_URL")
	setIfEnv(meta, "event", "CI_PIPELINE_EVENT")
	return meta
}
