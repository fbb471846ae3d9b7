package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Suffixes skipped during Containerfile auto-detection (editor droppings,
// templates, backups).
var ignoreSuffixes = map[string]bool{
	".j2":   true,
	".bak":  true,
	".orig": true,
	".swp":  true,
	".tmp":  true,
}

// Resolve merges declared configuration with filesystem auto-detection
// into the ordered, validated list of build variants.
//
// When build.variants is declared and non-empty it is used verbatim
// (auto-detection never runs). Otherwise the project root is scanned for
// Containerfile (tag "latest", default) and Containerfile.<suffix>
// (tag "<suffix>"), sorted lexicographically for determinism.
func Resolve(root string, cfg *Config) ([]Variant, error) {
	if len(cfg.Build.Variants) > 0 {
		return resolveDeclared(root, cfg)
	}

	variants := autoDetect(root, cfg)
	if len(variants) == 0 {
		return nil, &NoVariantsError{Root: root}
	}
	for i := range variants {
		inherit(&variants[i], cfg)
	}
	return variants, nil
}

// resolveDeclared validates declared variants and returns them verbatim.
func resolveDeclared(root string, cfg *Config) ([]Variant, error) {
	variants := make([]Variant, len(cfg.Build.Variants))
	copy(variants, cfg.Build.Variants)

	seen := map[string]string{} // tag -> owning variant
	defaults := 0
	for i := range variants {
		v := &variants[i]
		if v.Tag == "" {
			return nil, configErrorf("build.variants[%d]: tag is required", i)
		}
		if v.Containerfile == "" {
			v.Containerfile = "Containerfile"
		}
		cf := filepath.Join(root, v.Containerfile)
		if fi, err := os.Stat(cf); err != nil || !fi.Mode().IsRegular() {
			return nil, configErrorf("variant %q: containerfile %s does not exist", v.Tag, v.Containerfile)
		}
		if v.Default {
			defaults++
			if defaults > 1 {
				return nil, configErrorf("variant %q: more than one variant marked default", v.Tag)
			}
		}
		// Tag values must be unique across variants and their aliases.
		for _, tag := range append([]string{v.Tag}, v.Aliases...) {
			if owner, dup := seen[tag]; dup {
				return nil, configErrorf("duplicate tag %q (already used by variant %q)", tag, owner)
			}
			seen[tag] = v.Tag
		}
		if !v.AutoVersion {
			v.AutoVersion = cfg.Build.AutoVersion
		}
		if v.PkgName == "" {
			v.PkgName = cfg.Build.PkgName
		}
		inherit(v, cfg)
	}
	return variants, nil
}

// autoDetect scans root for Containerfile and Containerfile.<suffix>.
func autoDetect(root string, cfg *Config) []Variant {
	ignoreNames := map[string]bool{}
	for _, name := range cfg.Build.Ignore {
		ignoreNames[name] = true
	}

	var variants []Variant

	if fi, err := os.Stat(filepath.Join(root, "Containerfile")); err == nil && fi.Mode().IsRegular() {
		variants = append(variants, Variant{
			Tag:           "latest",
			Containerfile: "Containerfile",
			Default:       true,
			PkgName:       cfg.Build.PkgName,
			AutoVersion:   cfg.Build.AutoVersion,
		})
	}

	matches, _ := filepath.Glob(filepath.Join(root, "Containerfile.*"))
	sort.Strings(matches)
	for _, match := range matches {
		name := filepath.Base(match)
		if ignoreSuffixes[filepath.Ext(name)] || ignoreNames[name] {
			continue
		}
		suffix := strings.SplitN(name, ".", 2)[1]
		variants = append(variants, Variant{
			Tag:           suffix,
			Containerfile: name,
			PkgName:       cfg.Build.PkgName,
			AutoVersion:   cfg.Build.AutoVersion,
		})
	}

	return variants
}

// inherit fills the variant's architecture set from the project config.
func inherit(v *Variant, cfg *Config) {
	if len(v.Architectures) == 0 {
		v.Architectures = cfg.Architectures()
	}
}
