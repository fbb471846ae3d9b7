package cit

import (
	"os"
	"path/filepath"
)

// FindBaseline locates the stored baseline screenshot for a variant.
// Variant-specific baselines take precedence over the shared one; the
// .daemonless directory takes precedence over the repo root. Returns
// "" when no baseline exists.
func FindBaseline(root, tag string) string {
	candidates := []string{
		filepath.Join(root, ".daemonless", "baseline-"+tag+".png"),
		filepath.Join(root, ".daemonless", "baselines", "baseline-"+tag+".png"),
		filepath.Join(root, ".daemonless", "baseline.png"),
		filepath.Join(root, "baseline-"+tag+".png"),
		filepath.Join(root, "baseline.png"),
	}
	for _, c := range candidates {
		if fi, err := os.Stat(c); err == nil && !fi.IsDir() {
			return c
		}
	}
	return ""
}

// FindComposeFile returns the test stack definition if one exists.
func FindComposeFile(root string) string {
	for _, name := range []string{"compose.yaml", "compose.yml"} {
		p := filepath.Join(root, ".daemonless", name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}
