// Package ci abstracts over the CI systems dbuild runs under. Detect
// picks the backend from environment variables; everything else talks
// to CI through the Backend interface.
package ci

import (
	"encoding/json"
	"os"
)

// Backend is one CI environment. Token and Actor feed registry logins;
// OutputMatrix and SetOutput publish pipeline variables in whatever
// native mechanism the system has.
type Backend interface {
	Name() string
	Token() string
	Actor() string
	IsPR() bool
	CommitMessage() string
	OutputMatrix(entries any) error
	SetOutput(key, value string) error
	Metadata() map[string]string
}

// Detect returns the backend for the current environment, checked in
// order of specificity. Falls back to the local backend when no CI
// system is present.
func Detect(root string) Backend {
	switch {
	case os.Getenv("GITHUB_ACTIONS") != "":
		return &GitHub{root: root}
	case os.Getenv("CI_PIPELINE_ID") != "":
		return &Woodpecker{}
	case os.Getenv("GITLAB_CI") != "":
		return &GitLab{}
	default:
		return &Local{root: root}
	}
}

// matrixJSON wraps entries in the {"include": [...]} envelope shared by
// every output format.
func matrixJSON(entries any, compact bool) ([]byte, error) {
	wrapper := map[string]any{"include": entries}
	if compact {
		return json.Marshal(wrapper)
	}
	return json.MarshalIndent(wrapper, "", "  ")
}
