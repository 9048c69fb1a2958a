package platform

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rflorenc/awx-launch/internal/models"
)

// Client is the HTTP client used to talk to the controller API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the controller identified by creds.
func NewClient(creds models.Credentials) *Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if creds.Insecure {
		// #nosec
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &Client{
		baseURL:    creds.BaseURL(),
		httpClient: &http.Client{Transport: transport},
	}
}

// authorizer decorates a request with credentials.
type authorizer func(req *http.Request)

func basicAuth(username, password string) authorizer {
	return func(req *http.Request) {
		req.SetBasicAuth(username, password)
	}
}

func bearer(token string) authorizer {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// Get performs an authenticated GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, auth authorizer) ([]byte, error) {
	body, _, err := c.do(ctx, http.MethodGet, path, auth, nil)
	return body, err
}

// GetJSON performs an authenticated GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, auth authorizer, dest interface{}) error {
	body, err := c.Get(ctx, path, auth)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

// Post performs an authenticated POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, auth authorizer, payload interface{}) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, path, auth, payload)
}

// PostJSON performs an authenticated POST and unmarshals the response into dest.
func (c *Client) PostJSON(ctx context.Context, path string, auth authorizer, payload, dest interface{}) error {
	body, _, err := c.Post(ctx, path, auth, payload)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("parsing response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, auth authorizer, payload interface{}) ([]byte, int, error) {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	if auth != nil {
		auth(req)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, &RemoteAPIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, resp.StatusCode, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
