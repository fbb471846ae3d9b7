// Package cit runs container integration tests.
//
// Test modes are cumulative, each one including everything below it:
//
//	screenshot   health + capture screenshot + visual verify
//	health       port + HTTP health endpoint check
//	port         shell + TCP port is listening
//	shell        container starts, can exec into it
package cit

import (
	"fmt"

	"github.com/daemonless/dbuild/src/labels"
)

// Mode is a test ladder level. Values are strictly ordered by
// capability requirement: shell < port < health < screenshot.
type Mode int

const (
	ModeShell Mode = iota
	ModePort
	ModeHealth
	ModeScreenshot
)

var modeNames = map[Mode]string{
	ModeShell:      "shell",
	ModePort:       "port",
	ModeHealth:     "health",
	ModeScreenshot: "screenshot",
}

func (m Mode) String() string { return modeNames[m] }

// ParseMode maps a mode name to its level.
func ParseMode(s string) (Mode, bool) {
	for m, name := range modeNames {
		if name == s {
			return m, true
		}
	}
	return ModeShell, false
}

// Capabilities describes what the current environment can support for
// mode selection.
type Capabilities struct {
	Baseline    string   // baseline image path, "" when absent
	MissingDeps []string // missing screenshot dependencies, empty when installed
}

// Select resolves the effective test mode.
//
// When requested is empty, the highest mode whose preconditions hold is
// chosen. When the requested mode exceeds what preconditions allow, it
// is downgraded to the highest supported mode; the returned notes
// explain the missing capability. Downgrades are warnings, not failures.
func Select(requested string, eff labels.Effective, caps Capabilities) (Mode, []string, error) {
	supported := func(m Mode) bool {
		switch m {
		case ModeScreenshot:
			return caps.Baseline != "" && len(caps.MissingDeps) == 0
		case ModeHealth:
			return eff.Health != ""
		case ModePort:
			return eff.Port != 0
		default:
			return true // shell is the floor
		}
	}

	highest := func(from Mode) Mode {
		for m := from; m > ModeShell; m-- {
			if supported(m) {
				return m
			}
		}
		return ModeShell
	}

	if requested == "" {
		return highest(ModeScreenshot), nil, nil
	}

	want, ok := ParseMode(requested)
	if !ok {
		return ModeShell, nil, fmt.Errorf("unknown test mode %q (valid: shell, port, health, screenshot)", requested)
	}
	if supported(want) {
		return want, nil, nil
	}

	fallback := highest(want)
	notes := []string{fmt.Sprintf("%s mode requires missing capabilities:", want)}
	notes = append(notes, missingFor(want, eff, caps)...)
	notes = append(notes, fmt.Sprintf("downgrading: %s -> %s", want, fallback))
	return fallback, notes, nil
}

func missingFor(m Mode, eff labels.Effective, caps Capabilities) []string {
	var out []string
	switch m {
	case ModeScreenshot:
		if caps.Baseline == "" {
			out = append(out, "  - baseline image (.daemonless/baseline.png)")
		}
		for _, dep := range caps.MissingDeps {
			out = append(out, "  - "+dep)
		}
	case ModeHealth:
		out = append(out, "  - health path (cit.health or io.daemonless.healthcheck-url label)")
	case ModePort:
		out = append(out, "  - port number (cit.port or io.daemonless.port label)")
	}
	return out
}
