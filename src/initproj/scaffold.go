// Package initproj scaffolds starter files for a new dbuild project.
// Existing files are never overwritten.
package initproj

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/rs/zerolog"
)

// Options controls what gets scaffolded.
type Options struct {
	Name       string // defaults to the project directory name
	Title      string // defaults to capitalized Name
	Port       int
	GitHub     bool // also write a GitHub Actions workflow
	Woodpecker bool // also write a Woodpecker pipeline
	DryRun     bool
}

type templateContext struct {
	Name  string
	Title string
	Port  int
}

// Scaffold writes the starter files into root. Returns the paths that
// were created (files that already existed are skipped, not errors).
func Scaffold(root string, opts Options, log zerolog.Logger) ([]string, error) {
	name := opts.Name
	if name == "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, err
		}
		name = filepath.Base(abs)
	}
	title := opts.Title
	if title == "" {
		title = strings.ToUpper(name[:1]) + name[1:]
	}
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	ctx := templateContext{Name: name, Title: title, Port: port}

	type file struct {
		path string
		tmpl string
		exec bool
	}
	files := []file{
		{path: filepath.Join(".daemonless", "config.yaml"), tmpl: configTemplate},
		{path: filepath.Join(".daemonless", "compose.yaml"), tmpl: composeTemplate},
		{path: "Containerfile", tmpl: containerfileTemplate},
		{path: filepath.Join("root", "etc", "services.d", name, "run"), tmpl: runScriptTemplate, exec: true},
		{path: filepath.Join("root", "healthz"), tmpl: healthzTemplate, exec: true},
	}
	if opts.GitHub {
		files = append(files, file{path: filepath.Join(".github", "workflows", "build.yaml"), tmpl: githubWorkflowTemplate})
	}
	if opts.Woodpecker {
		files = append(files, file{path: ".woodpecker.yaml", tmpl: woodpeckerTemplate})
	}

	var created []string
	for _, f := range files {
		target := filepath.Join(root, f.path)
		if _, err := os.Stat(target); err == nil {
			log.Warn().Str("path", f.path).Msg("skipped (already exists)")
			continue
		}

		content, err := render(f.path, f.tmpl, ctx)
		if err != nil {
			return created, err
		}
		if opts.DryRun {
			log.Info().Str("path", f.path).Msg("would create")
			created = append(created, f.path)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return created, err
		}
		mode := os.FileMode(0o644)
		if f.exec {
			mode = 0o755
		}
		if err := os.WriteFile(target, content, mode); err != nil {
			return created, fmt.Errorf("writing %s: %w", f.path, err)
		}
		log.Info().Str("path", f.path).Msg("created")
		created = append(created, f.path)
	}
	return created, nil
}

func render(name, tmpl string, ctx templateContext) ([]byte, error) {
	t, err := template.New(name).Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.Bytes(), nil
}
