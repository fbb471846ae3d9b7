package labels

import (
	"strings"

	"github.com/daemonless/dbuild/src/config"
)

// DefaultWait is the probe timeout in seconds when neither config nor
// labels specify one.
const DefaultWait = 120

// Effective is the fully resolved per-run test configuration after
// merging declared cit config with image labels.
type Effective struct {
	Mode           string // may still be empty: resolved by mode selection
	Port           int
	Health         string
	Wait           int
	Ready          string
	ScreenshotWait int
	ScreenshotPath string
	HTTPS          bool
	Compose        bool
	Annotations    map[string]string
}

// Merge resolves the effective test configuration. Pure function, no
// failure modes: every field follows the precedence chain
// config > label > default.
func Merge(cit *config.TestConfig, img ImageLabels) Effective {
	eff := Effective{
		Wait:        DefaultWait,
		Annotations: map[string]string{},
	}

	// Jail annotations from labels first, config entries override.
	for k, v := range img.Jail {
		eff.Annotations[k] = v
	}

	eff.Port = img.Port
	eff.Health = img.Health

	if cit != nil {
		eff.Mode = cit.Mode
		if cit.Port != 0 {
			eff.Port = cit.Port
		}
		if cit.Health != "" {
			eff.Health = cit.Health
		}
		if cit.Wait != 0 {
			eff.Wait = cit.Wait
		}
		eff.Ready = cit.Ready
		eff.ScreenshotWait = cit.ScreenshotWait
		eff.ScreenshotPath = cit.Screenshot
		eff.HTTPS = cit.HTTPS
		eff.Compose = cit.Compose
		for _, ann := range cit.Annotations {
			if k, v, ok := strings.Cut(ann, "="); ok {
				eff.Annotations[k] = v
			}
		}
	}

	return eff
}
