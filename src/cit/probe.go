package cit

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Prober waits for network-level readiness of the container under test.
type Prober interface {
	WaitPort(ctx context.Context, host string, port int, timeout time.Duration) error
	WaitHealth(ctx context.Context, url string, timeout time.Duration) error
}

// netProber probes over real TCP and HTTP.
type netProber struct {
	client *http.Client
}

// NewProber returns the default network prober. TLS verification is
// disabled: test containers serve self-signed certificates.
func NewProber() Prober {
	return &netProber{
		client: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// WaitPort polls until a TCP connection to host:port succeeds.
func (p *netProber) WaitPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	deadline := time.Now().Add(timeout)
	dialer := &net.Dialer{Timeout: 2 * time.Second}

	for {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			conn.Close()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("port %s not listening after %s", addr, timeout)
		}
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitHealth polls url until it answers with a non-server-error status.
// Anything below 500 counts as healthy: auth walls and redirects still
// prove the service is up.
func (p *netProber) WaitHealth(ctx context.Context, url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := p.client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 500 {
				return nil
			}
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("health check %s failed after %s: %w", url, timeout, lastErr)
		}
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
