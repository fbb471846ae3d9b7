package registry

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForURLDispatch(t *testing.T) {
	log := zerolog.Nop()

	c := ForURL(nil, log, "ghcr.io/daemonless")
	_, ok := c.(*GHCR)
	assert.True(t, ok)

	c = ForURL(nil, log, "docker.io/daemonless")
	_, ok = c.(*DockerHub)
	assert.True(t, ok)

	c = ForURL(nil, log, "registry.example.com/imgs")
	_, ok = c.(*Generic)
	assert.True(t, ok)
}

func TestForURLPreservesPrefix(t *testing.T) {
	c := ForURL(nil, zerolog.Nop(), "ghcr.io/daemonless")
	assert.Equal(t, "ghcr.io/daemonless", c.URL())
}

func TestGenericHost(t *testing.T) {
	g := &Generic{url: "ghcr.io/daemonless"}
	assert.Equal(t, "ghcr.io", g.host())

	g = &Generic{url: "localhost"}
	assert.Equal(t, "localhost", g.host())
}

type hubTransport struct {
	requests []*http.Request
	bodies   []string
}

func (h *hubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, _ := io.ReadAll(req.Body)
	h.requests = append(h.requests, req)
	h.bodies = append(h.bodies, string(body))

	payload := "{}"
	if strings.HasSuffix(req.URL.Path, "/users/login/") {
		payload = `{"token":"jwt-abc"}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(payload)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}, nil
}

func TestDockerHubUpdateDescription(t *testing.T) {
	tr := &hubTransport{}
	d := &DockerHub{
		Generic:    &Generic{url: "docker.io/daemonless", log: zerolog.Nop()},
		HTTPClient: &http.Client{Transport: tr},
	}

	err := d.UpdateDescription(context.Background(), "daemonless/radarr", "FreeBSD radarr image", "user", "pass")
	require.NoError(t, err)
	require.Len(t, tr.requests, 2)

	login := tr.requests[0]
	assert.Equal(t, http.MethodPost, login.Method)
	assert.Contains(t, login.URL.Path, "/users/login/")

	patch := tr.requests[1]
	assert.Equal(t, http.MethodPatch, patch.Method)
	assert.Contains(t, patch.URL.Path, "/repositories/daemonless/radarr/")
	assert.Equal(t, "JWT jwt-abc", patch.Header.Get("Authorization"))

	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(tr.bodies[1]), &sent))
	assert.Equal(t, "FreeBSD radarr image", sent["description"])
}

type failingTransport struct{}

func (failingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       io.NopCloser(strings.NewReader("{}")),
	}, nil
}

func TestDockerHubUpdateDescriptionLoginFailure(t *testing.T) {
	d := &DockerHub{
		Generic:    &Generic{url: "docker.io/daemonless", log: zerolog.Nop()},
		HTTPClient: &http.Client{Transport: failingTransport{}},
	}

	err := d.UpdateDescription(context.Background(), "daemonless/radarr", "x", "user", "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login")
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := &Error{Op: "push", Ref: "ghcr.io/daemonless/radarr:latest", Err: inner}

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "push")
	assert.Contains(t, err.Error(), "radarr:latest")
}
