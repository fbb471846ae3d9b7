package ci

import (
	"encoding/json"
	"strings"

	"github.com/daemonless/dbuild/src/config"
)

// MatrixEntry is one (variant, architecture) build job.
type MatrixEntry struct {
	Tag           string            `json:"tag"`
	Containerfile string            `json:"containerfile"`
	Arch          string            `json:"arch"`
	Args          map[string]string `json:"args"`
	Aliases       []string          `json:"aliases"`
	AutoVersion   bool              `json:"auto_version"`
}

// GitHubEntry extends a matrix entry with the fields the GitHub Actions
// FreeBSD VM workflow consumes.
type GitHubEntry struct {
	MatrixEntry
	Type       string `json:"type"`
	ArchSuffix string `json:"arch_suffix"`
	VMArch     string `json:"vm_arch"`
	VMSync     string `json:"vm_sync"`
}

// vmSettings map an architecture to the vmactions runner configuration.
type vmSettings struct {
	archSuffix string
	vmArch     string
	vmSync     string
}

var vmArchMap = map[string]vmSettings{
	"amd64":   {archSuffix: "", vmArch: "", vmSync: "rsync"},
	"aarch64": {archSuffix: "-aarch64", vmArch: "aarch64", vmSync: "rsync"},
	"riscv64": {archSuffix: "-riscv64", vmArch: "riscv64", vmSync: "scp"},
}

// BuildMatrix expands variants into the (variant, arch) cross product,
// optionally filtered to a single variant tag or architecture.
func BuildMatrix(cfg *config.Config, variants []config.Variant, variantFilter, archFilter string) []MatrixEntry {
	matrix := []MatrixEntry{}
	for _, v := range variants {
		if variantFilter != "" && v.Tag != variantFilter {
			continue
		}
		arches := v.Architectures
		if len(arches) == 0 {
			arches = cfg.Architectures()
		}
		for _, arch := range arches {
			if archFilter != "" && arch != archFilter {
				continue
			}
			args := v.Args
			if args == nil {
				args = map[string]string{}
			}
			aliases := v.Aliases
			if aliases == nil {
				aliases = []string{}
			}
			matrix = append(matrix, MatrixEntry{
				Tag:           v.Tag,
				Containerfile: v.Containerfile,
				Arch:          arch,
				Args:          args,
				Aliases:       aliases,
				AutoVersion:   v.AutoVersion,
			})
		}
	}
	return matrix
}

// GitHubExtras enriches a matrix with VM fields and computes the extra
// workflow outputs (compose_only, architectures, manifest_tags).
func GitHubExtras(cfg *config.Config, variants []config.Variant, matrix []MatrixEntry) ([]GitHubEntry, map[string]string) {
	enriched := make([]GitHubEntry, 0, len(matrix))
	for _, entry := range matrix {
		vm, ok := vmArchMap[entry.Arch]
		if !ok {
			vm = vmArchMap["amd64"]
		}
		enriched = append(enriched, GitHubEntry{
			MatrixEntry: entry,
			Type:        cfg.Type,
			ArchSuffix:  vm.archSuffix,
			VMArch:      vm.vmArch,
			VMSync:      vm.vmSync,
		})
	}

	composeOnly := "false"
	if len(matrix) == 0 && cfg.Test != nil && cfg.Test.Compose {
		composeOnly = "true"
	}

	archJSON, _ := json.Marshal(cfg.Architectures())

	// Unique tag + aliases, in declaration order, for manifest jobs.
	var manifestTags []string
	seen := map[string]bool{}
	for _, v := range variants {
		for _, t := range append([]string{v.Tag}, v.Aliases...) {
			if !seen[t] {
				manifestTags = append(manifestTags, t)
				seen[t] = true
			}
		}
	}

	extras := map[string]string{
		"compose_only":  composeOnly,
		"architectures": string(archJSON),
		"manifest_tags": strings.Join(manifestTags, " "),
	}
	return enriched, extras
}
