package ci

import (
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/daemonless/dbuild/src/gitmeta"
)

// Local is the fallback backend for builds outside any CI system.
// Everything comes from the local git repository and OS user.
type Local struct {
	root string
}

func (l *Local) Name() string  { return "local" }
func (l *Local) Token() string { return os.Getenv("GITHUB_TOKEN") }

func (l *Local) Actor() string {
	if actor := os.Getenv("GITHUB_ACTOR"); actor != "" {
		return actor
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func (l *Local) IsPR() bool { return false }

func (l *Local) CommitMessage() string {
	return strings.TrimSpace(gitmeta.HeadMessage(l.root))
}

func (l *Local) OutputMatrix(entries any) error {
	payload, err := matrixJSON(entries, false)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(payload))
	return err
}

func (l *Local) SetOutput(key, value string) error {
	_, err := fmt.Fprintf(os.Stdout, "%s=%s\n", key, value)
	return err
}

func (l *Local) Metadata() map[string]string {
	meta := map[string]string{}
	m := gitmeta.Read(l.root)
	if m.SHA != "" {
		meta["sha"] = m.SHA
	}
	if m.Branch != "" {
		meta["branch"] = m.Branch
	}
	if m.Remote != "" {
		meta["repo"] = m.Remote
	}
	return meta
}
