// Package labels reads CIT-relevant OCI labels off built images and
// merges them with declared test configuration.
package labels

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/daemonless/dbuild/src/gitmeta"
)

// Label keys recognised by the test harness.
const (
	PortLabel   = "io.daemonless.port"
	HealthLabel = "io.daemonless.healthcheck-url"
	jailPrefix  = "org.freebsd.jail."

	VersionLabel  = "org.opencontainers.image.version"
	CreatedLabel  = "org.opencontainers.image.created"
	RevisionLabel = "org.opencontainers.image.revision"
	VariantLabel  = "io.daemonless.variant"
)

// ImageLabels holds the test parameters read off a built image.
// Zero values mean the label was absent.
type ImageLabels struct {
	Port    int
	Health  string
	Version string
	Jail    map[string]string
}

var schemeHostRe = regexp.MustCompile(`^https?://[^/]*`)

// Parse extracts CIT-relevant values from a raw label map.
func Parse(raw map[string]string) ImageLabels {
	var out ImageLabels
	out.Jail = map[string]string{}

	if v := raw[PortLabel]; v != "" && v != "<no value>" {
		if port, err := strconv.Atoi(v); err == nil {
			out.Port = port
		}
	}

	// Health labels may carry a full URL; only the path matters.
	if v := raw[HealthLabel]; v != "" && v != "<no value>" {
		path := schemeHostRe.ReplaceAllString(v, "")
		if path == "" {
			path = "/"
		}
		out.Health = path
	}

	out.Version = raw[VersionLabel]

	for k, v := range raw {
		if strings.HasPrefix(k, jailPrefix) && (v == "required" || v == "true") {
			out.Jail[k] = "true"
		}
	}

	return out
}

// ForBuild generates the standard OCI labels applied after a build.
func ForBuild(root, version, variantTag string, now time.Time) map[string]string {
	out := map[string]string{
		CreatedLabel: now.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if sha := gitmeta.Read(root).SHA; sha != "" {
		out[RevisionLabel] = sha
	}
	if version != "" {
		out[VersionLabel] = version
	}
	if variantTag != "" {
		out[VariantLabel] = variantTag
	}
	return out
}
