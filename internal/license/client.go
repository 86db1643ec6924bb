// Package license talks to the external license service.
package license

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	TypePro      = "pro"
	TypePersonal = "personal"
)

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Email       string `json:"email"`
	LicenseType string `json:"licenseType"`
}

type generateResponse struct {
	LicenseKey string `json:"licenseKey"`
}

// Generate asks the service for a new license key of licenseType for email.
func (c *Client) Generate(ctx context.Context, email, licenseType string) (string, error) {
	data, err := json.Marshal(generateRequest{Email: email, LicenseType: licenseType})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/license/generate", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return "", err
	}
	var out generateResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode license response: %w", err)
	}
	if out.LicenseKey == "" {
		return "", fmt.Errorf("license response has no key")
	}
	return out.LicenseKey, nil
}

// Lookup returns the service's answer for email unchanged.
func (c *Client) Lookup(ctx context.Context, email string) (json.RawMessage, error) {
	endpoint := c.baseURL + "/api/license/lookup/" + url.PathEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("license lookup returned invalid json")
	}
	return json.RawMessage(body), nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("license request failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return body, nil
}
