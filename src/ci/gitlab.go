package ci

import (
	"fmt"
	"os"
)

// GitLab is the GitLab CI backend. GitLab has no native matrix output;
// dynamic child pipelines would cover it but are not wired up, so the
// matrix is printed as JSON like the local backend.
type GitLab struct{}

func (g *GitLab) Name() string { return "gitlab" }

// Token prefers an explicit GITHUB_TOKEN variable (for GHCR pushes)
// over the limited-permission CI_JOB_TOKEN.
func (g *GitLab) Token() string {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("CI_JOB_TOKEN")
}

func (g *GitLab) Actor() string {
	if actor := os.Getenv("GITHUB_ACTOR"); actor != "" {
		return actor
	}
	return os.Getenv("GITLAB_USER_LOGIN")
}

func (g *GitLab) IsPR() bool {
	return os.Getenv("CI_MERGE_REQUEST_ID") != ""
}

func (g *GitLab) CommitMessage() string {
	return os.Getenv("CI_COMMIT_MESSAGE")
}

func (g *GitLab) OutputMatrix(entries any) error {
	payload, err := matrixJSON(entries, false)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(payload))
	return err
}

func (g *GitLab) SetOutput(key, value string) error {
	_, err := fmt.Fprintf(os.Stdout, "%s=%s\n", key, value)
	return err
}

func (g *GitLab) Metadata() map[string]string {
	meta := map[string]string{}
	setIfEnv(meta, "sha", "CI_COMMIT_SHA")
	setIfEnv(meta, "branch", "CI_COMMIT_BRANCH")
	setIfEnv(meta, "repo", "CI_PROJECT_PATH")
	setIfEnv(meta, "run_url", "CI_PIPELINE_URL")
	if os.Getenv("CI_MERGE_REQUEST_ID") != "" {
		meta["event"] = "merge_request"
	} else {
		meta["event"] = "push"
	}
	return meta
}
