// Package manifest plans and pushes multi-arch manifest lists.
//
// Planning is pure: given a variant's tags, the configured architecture
// set, and which arch-specific images made it to the registry, it
// yields the manifest lists to create. Pushing routes through podman.
package manifest

import (
	"fmt"
	"strings"

	"github.com/daemonless/dbuild/src/config"
)

// Tag suffix convention: amd64 owns the bare tag, everything else is
// suffixed.
var archTagSuffix = map[string]string{
	"amd64":   "",
	"aarch64": "-arm64",
	"arm64":   "-arm64",
	"riscv64": "-riscv64",
}

// ArchTag returns the architecture-specific tag for baseTag. Unknown
// architectures fall back to "-<arch>".
func ArchTag(baseTag, arch string) string {
	suffix, ok := archTagSuffix[arch]
	if !ok {
		suffix = "-" + arch
	}
	return baseTag + suffix
}

// KnownArch reports whether arch has a registered tag suffix.
func KnownArch(arch string) bool {
	_, ok := archTagSuffix[arch]
	return ok
}

// Spec is one manifest list to create: the composite tag plus the
// architecture-specific image references that back it.
type Spec struct {
	Tag     string
	Members []string
}

// InsufficientArchitecturesError means a multi-arch manifest cannot be
// assembled because fewer than two architecture images were pushed.
type InsufficientArchitecturesError struct {
	Tag    string
	Pushed []string
}

func (e *InsufficientArchitecturesError) Error() string {
	return fmt.Sprintf("manifest :%s needs at least 2 architecture images, have %d (%s)",
		e.Tag, len(e.Pushed), strings.Join(e.Pushed, ", "))
}

// Plan computes the manifest lists for a variant. With fewer than two
// configured architectures there is nothing to compose and Plan returns
// nil. available reports which architecture-specific refs exist.
func Plan(fullImage string, v config.Variant, architectures []string, available func(ref string) bool) ([]Spec, error) {
	if len(architectures) < 2 {
		return nil, nil
	}

	var specs []Spec
	seen := map[string]bool{}
	for _, tag := range append([]string{v.Tag}, v.Aliases...) {
		if seen[tag] {
			continue
		}
		seen[tag] = true

		var members []string
		for _, arch := range architectures {
			ref := fullImage + ":" + ArchTag(tag, arch)
			if available(ref) {
				members = append(members, ref)
			}
		}
		if len(members) < 2 {
			return nil, &InsufficientArchitecturesError{Tag: tag, Pushed: members}
		}
		specs = append(specs, Spec{Tag: fullImage + ":" + tag, Members: members})
	}
	return specs, nil
}
