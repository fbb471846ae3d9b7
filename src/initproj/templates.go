package initproj

// Starter file templates, rendered with text/template. Kept small on
// purpose: scaffolding gets a project building, not production-ready.

const configTemplate = `# dbuild configuration for {{ .Name }}
type: app

build:
  auto_version: true
  variants:
    - tag: latest
      containerfile: Containerfile
      default: true

cit:
  port: {{ .Port }}
  health: /
`

const composeTemplate = `services:
  {{ .Name }}:
    image: {{ .Name }}:build
    ports:
      - "{{ .Port }}:{{ .Port }}"
    restart: unless-stopped
`

const containerfileTemplate = `ARG FREEBSD_ARCH=amd64
FROM ghcr.io/daemonless/freebsd-runtime:latest

LABEL org.opencontainers.image.title="{{ .Title }}"
LABEL org.opencontainers.image.description="{{ .Title }} on FreeBSD."
LABEL io.daemonless.port="{{ .Port }}"
LABEL io.daemonless.healthcheck-url="/"

RUN pkg install -y {{ .Name }} && pkg clean -ay

COPY root/ /

EXPOSE {{ .Port }}
ENTRYPOINT ["/init"]
`

const runScriptTemplate = `#!/bin/sh
# services.d run script for {{ .Name }}
exec {{ .Name }}
`

const healthzTemplate = `#!/bin/sh
fetch -qo /dev/null http://127.0.0.1:{{ .Port }}/ || exit 1
`

const githubWorkflowTemplate = `name: build

on:
  push:
    branches: [main]
  pull_request:

jobs:
  detect:
    runs-on: ubuntu-latest
    outputs:
      matrix: ${{"{{"}} steps.detect.outputs.matrix {{"}}"}}
    steps:
      - uses: actions/checkout@v4
      - id: detect
        run: dbuild detect --format github

  build:
    needs: detect
    runs-on: ubuntu-latest
    strategy:
      matrix: ${{"{{"}} fromJson(needs.detect.outputs.matrix) {{"}}"}}
    steps:
      - uses: actions/checkout@v4
      - name: CI pipeline
        run: dbuild ci --variant ${{"{{"}} matrix.tag {{"}}"}} --arch ${{"{{"}} matrix.arch {{"}}"}}
        env:
          GITHUB_TOKEN: ${{"{{"}} secrets.GITHUB_TOKEN {{"}}"}}
`

const woodpeckerTemplate = `steps:
  ci:
    image: ghcr.io/daemonless/dbuild:latest
    commands:
      - dbuild ci
    secrets: [github_token, github_actor]
`
