package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DockerHub is the docker.io backend. It adds mirroring and repository
// description updates on top of the generic OCI operations.
type DockerHub struct {
	*Generic

	// HTTPClient overrides the client used for Hub API calls. Tests set it.
	HTTPClient *http.Client
}

const hubAPI = "https://hub.docker.com/v2"

// UpdateDescription PATCHes the Hub repository description. Requires
// Docker Hub credentials, not a registry token. Failures are returned
// but callers treat them as non-fatal: the image is already pushed.
func (d *DockerHub) UpdateDescription(ctx context.Context, repo, description, username, password string) error {
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	jwt, err := d.hubLogin(ctx, client, username, password)
	if err != nil {
		return fmt.Errorf("docker hub api login: %w", err)
	}

	body, _ := json.Marshal(map[string]string{"description": description})
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch,
		fmt.Sprintf("%s/repositories/%s/", hubAPI, repo), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "JWT "+jwt)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("description update for %s: status %d", repo, resp.StatusCode)
	}
	d.log.Info().Str("repo", repo).Msg("updated Docker Hub description")
	return nil
}

func (d *DockerHub) hubLogin(ctx context.Context, client *http.Client, username, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hubAPI+"/users/login/", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("no token in login response")
	}
	return out.Token, nil
}
