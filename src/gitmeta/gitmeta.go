// Package gitmeta reads repository metadata (head commit, branch, remote)
// used for registry auto-detection, OCI labels, and skip directives.
// Everything here is best-effort: a missing or bare repository yields
// empty values, never an error surfaced to the caller.
package gitmeta

import (
	"regexp"

	git "github.com/go-git/go-git/v5"
)

// Meta holds the repository facts dbuild cares about.
type Meta struct {
	SHA     string
	Branch  string
	Remote  string // origin URL
	Message string // head commit message
}

var (
	sshRemoteRe   = regexp.MustCompile(`^git@[^:]+:([^/]+)/`)
	httpsRemoteRe = regexp.MustCompile(`^https?://[^/]+/([^/]+)/`)
)

// Read collects metadata from the repository containing root.
func Read(root string) Meta {
	var m Meta

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return m
	}

	if remote, err := repo.Remote("origin"); err == nil {
		urls := remote.Config().URLs
		if len(urls) > 0 {
			m.Remote = urls[0]
		}
	}

	head, err := repo.Head()
	if err != nil {
		return m
	}
	m.SHA = head.Hash().String()
	if head.Name().IsBranch() {
		m.Branch = head.Name().Short()
	}

	if commit, err := repo.CommitObject(head.Hash()); err == nil {
		m.Message = commit.Message
	}

	return m
}

// HeadMessage returns the head commit message, or "" when unavailable.
func HeadMessage(root string) string {
	return Read(root).Message
}

// RemoteOrg extracts the org/owner from an origin remote URL.
// Supports HTTPS (https://github.com/org/repo) and SSH
// (git@github.com:org/repo.git) formats. Returns "" when unparseable.
func RemoteOrg(remote string) string {
	if m := sshRemoteRe.FindStringSubmatch(remote); m != nil {
		return m[1]
	}
	if m := httpsRemoteRe.FindStringSubmatch(remote); m != nil {
		return m[1]
	}
	return ""
}
