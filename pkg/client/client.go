// Package client implements the CLI-facing HTTP client for the admin API,
// grounded on original_source's send_request: TLS pinned to the supervisor's
// self-signed certificate, Basic auth carrying the shared token, JSON
// request/response.
package client

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ezorch/ezorch/pkg/adminapi"
	"github.com/ezorch/ezorch/pkg/auth"
)

// Client talks to one supervisor's admin API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New builds a Client targeting addr (host:port), trusting only the
// certificate in authConfig and authenticating with its token.
func New(addr string, authConfig *auth.Config) (*Client, error) {
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM([]byte(authConfig.Cert)) {
		return nil, fmt.Errorf("failed to parse admin API certificate")
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{RootCAs: pool, ServerName: "ezorch"},
	}

	return &Client{
		baseURL: "https://" + addr,
		http:    &http.Client{Transport: transport},
		token:   authConfig.Token,
	}, nil
}

func (c *Client) send(req adminapi.ClientRequest) (adminapi.ClientResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return adminapi.ClientResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequest(http.MethodPost, c.baseURL+"/api", bytes.NewReader(body))
	if err != nil {
		return adminapi.ClientResponse{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(":"+c.token)))

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return adminapi.ClientResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return adminapi.ClientResponse{}, fmt.Errorf("admin API returned status %d", httpResp.StatusCode)
	}

	var resp adminapi.ClientResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return adminapi.ClientResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Kind == adminapi.ResponseError {
		return resp, fmt.Errorf("admin API error: %s", resp.Message)
	}
	return resp, nil
}

// Ping checks liveness.
func (c *Client) Ping() error {
	_, err := c.send(adminapi.ClientRequest{Kind: adminapi.RequestPing})
	return err
}

// GetTarget fetches the raw target text.
func (c *Client) GetTarget() (string, error) {
	resp, err := c.send(adminapi.ClientRequest{Kind: adminapi.RequestGetTarget})
	if err != nil {
		return "", err
	}
	return resp.Target, nil
}

// SetTarget submits new target text, returning the supervisor's confirmation
// message.
func (c *Client) SetTarget(text string) (string, error) {
	resp, err := c.send(adminapi.ClientRequest{Kind: adminapi.RequestSetTarget, Target: text})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Status fetches the formatted status report.
func (c *Client) Status() (adminapi.ClientResponse, error) {
	return c.send(adminapi.ClientRequest{Kind: adminapi.RequestStatus})
}
