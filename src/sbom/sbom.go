// Package sbom generates software bills of materials for built images.
//
// The image rootfs is mounted via buildah and scanned with trivy for
// language-level dependencies; FreeBSD packages come from pkg query
// inside the container. The resulting document is the same shape the
// legacy generate-sbom.sh produced, so downstream merge tooling keeps
// working.
package sbom

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/daemonless/dbuild/src/config"
	"github.com/daemonless/dbuild/src/podman"
)

// Trivy result types grouped by ecosystem.
var trivyPkgTypes = map[string][]string{
	"dotnet": {"dotnet-core"},
	"go":     {"gobinary", "gomod"},
	"java":   {"jar", "pom"},
	"node":   {"node-pkg"},
	"php":    {"composer"},
	"python": {"python-pkg"},
	"ruby":   {"bundler", "gemspec"},
	"rust":   {"rustbinary", "cargo"},
}

// categories in output order.
var categories = []string{"dotnet", "go", "java", "node", "php", "python", "ruby", "rust"}

// Package is one dependency entry.
type Package struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Document is the SBOM for one (variant, arch) image.
type Document struct {
	Image      string               `json:"image"`
	Tag        string               `json:"tag"`
	Arch       string               `json:"arch"`
	AppVersion string               `json:"app_version"`
	Source     string               `json:"source"`
	Generated  string               `json:"generated"`
	Packages   map[string][]Package `json:"packages"`
	Summary    map[string]int       `json:"summary"`
}

// Generator produces SBOM documents and writes them to disk.
type Generator struct {
	Client   *podman.Client
	Log      zerolog.Logger
	TrivyBin string // defaults to "trivy"
}

// Generate scans the variant's build image and writes the SBOM to
// outDir. Returns the output path.
func (g *Generator) Generate(ctx context.Context, cfg *config.Config, v config.Variant, arch, outDir string) (string, error) {
	buildRef := fmt.Sprintf("%s:build-%s", cfg.FullImage(), v.Tag)
	if !g.Client.ImageExists(ctx, buildRef) {
		return "", fmt.Errorf("image %s not found, build it first", buildRef)
	}

	doc, err := g.scan(ctx, cfg, v, arch, buildRef)
	if err != nil {
		return "", err
	}

	outPath, err := writeDocument(outDir, doc)
	if err != nil {
		return "", err
	}

	g.Log.Info().Str("path", outPath).Int("packages", doc.Summary["total"]).Msg("wrote SBOM")
	return outPath, nil
}

// writeDocument writes the SBOM under outDir as
// {image}-{tag}-sbom.json. The document tag carries the arch suffix, so
// concurrent pairs of one variant never clobber each other's file.
func writeDocument(outDir string, doc *Document) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, fmt.Sprintf("%s-%s-sbom.json", doc.Image, doc.Tag))
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing SBOM: %w", err)
	}
	return outPath, nil
}

func (g *Generator) scan(ctx context.Context, cfg *config.Config, v config.Variant, arch, buildRef string) (*Document, error) {
	g.Log.Info().Str("image", buildRef).Msg("generating SBOM")

	appVersion := g.appVersion(ctx, buildRef)

	// Mount the rootfs so trivy can scan it without an export.
	containerID, err := g.Client.BuildahFrom(ctx, buildRef)
	if err != nil {
		return nil, fmt.Errorf("mounting image: %w", err)
	}
	defer func() { _ = g.Client.BuildahRm(context.WithoutCancel(ctx), containerID) }()

	mountPath, err := g.Client.BuildahMount(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("mounting rootfs: %w", err)
	}
	trivyPkgs := g.runTrivy(ctx, mountPath)
	_ = g.Client.BuildahUmount(ctx, containerID)

	freebsdPkgs := g.freebsdPackages(ctx, buildRef)

	packages := map[string][]Package{"freebsd": freebsdPkgs}
	summary := map[string]int{"freebsd": len(freebsdPkgs)}
	total := len(freebsdPkgs)
	for _, cat := range categories {
		pkgs := trivyPkgs[cat]
		if pkgs == nil {
			pkgs = []Package{}
		}
		packages[cat] = pkgs
		summary[cat] = len(pkgs)
		total += len(pkgs)
	}
	summary["total"] = total

	return &Document{
		Image:      cfg.Image,
		Tag:        suffixedTag(v.Tag, arch),
		Arch:       arch,
		AppVersion: appVersion,
		Source:     detectSource(v),
		Generated:  time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		Packages:   packages,
		Summary:    summary,
	}, nil
}

// suffixedTag appends the architecture to non-amd64 tags, keeping
// per-arch documents distinct when merged.
func suffixedTag(tag, arch string) string {
	if arch == "amd64" {
		return tag
	}
	return tag + "-" + arch
}

// detectSource derives the source type from the containerfile suffix
// (Containerfile.pkg builds from packages); a bare Containerfile means
// an upstream source build.
func detectSource(v config.Variant) string {
	if _, suffix, ok := strings.Cut(v.Containerfile, "."); ok {
		return suffix
	}
	return "upstream"
}

func (g *Generator) runTrivy(ctx context.Context, mountPath string) map[string][]Package {
	bin := g.TrivyBin
	if bin == "" {
		bin = "trivy"
	}
	g.Log.Info().Msg("running trivy scan")
	cmd := exec.CommandContext(ctx, bin, "rootfs", mountPath, "--format", "json", "--scanners", "vuln")
	out, err := cmd.Output()
	if err != nil {
		g.Log.Warn().Err(err).Msg("trivy scan failed, continuing without language packages")
		return nil
	}

	var data struct {
		Results []struct {
			Type     string `json:"Type"`
			Packages []struct {
				Name    string `json:"Name"`
				Version string `json:"Version"`
			} `json:"Packages"`
		} `json:"Results"`
	}
	if err := json.Unmarshal(out, &data); err != nil {
		g.Log.Warn().Err(err).Msg("cannot parse trivy output")
		return nil
	}

	packages := map[string][]Package{}
	for _, result := range data.Results {
		for category, typeNames := range trivyPkgTypes {
			for _, name := range typeNames {
				if result.Type != name {
					continue
				}
				for _, pkg := range result.Packages {
					if !containsPkg(packages[category], pkg.Name) {
						packages[category] = append(packages[category], Package{Name: pkg.Name, Version: pkg.Version})
					}
				}
			}
		}
	}
	return packages
}

func containsPkg(pkgs []Package, name string) bool {
	for _, p := range pkgs {
		if p.Name == name {
			return true
		}
	}
	return false
}

// freebsdPackages lists installed packages via pkg query inside the image.
func (g *Generator) freebsdPackages(ctx context.Context, buildRef string) []Package {
	out, err := g.Client.RunIn(ctx, buildRef, []string{"pkg", "query", "%n %v"})
	if err != nil {
		g.Log.Warn().Msg("cannot query FreeBSD packages")
		return []Package{}
	}

	// pkg query can emit control characters (STX) around entries.
	out = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' {
			return r
		}
		return -1
	}, out)

	pkgs := []Package{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if name, version, ok := strings.Cut(line, " "); ok {
			pkgs = append(pkgs, Package{Name: name, Version: strings.TrimSpace(version)})
		}
	}
	return pkgs
}

// appVersion reads the application version baked into the image,
// falling back to the title package version.
func (g *Generator) appVersion(ctx context.Context, buildRef string) string {
	out, err := g.Client.RunIn(ctx, buildRef, []string{"sh", "-c",
		`cat /app/version 2>/dev/null || pkg query "%v" $(pkg query -e "%At = title" "%n") 2>/dev/null | head -1 || echo unknown`})
	if err != nil || strings.TrimSpace(out) == "" {
		return "unknown"
	}
	return strings.TrimSpace(out)
}
