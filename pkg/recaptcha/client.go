package recaptcha

import (
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
	// VerifyURL is the reCAPTCHA siteverify endpoint.
	VerifyURL = "https://www.google.com/recaptcha/api/siteverify"
)

// VerifyResponse is the siteverify answer. Score is only present for v3
// tokens.
type VerifyResponse struct {
	Success     bool     `json:"success"`
	Score       *float64 `json:"score,omitempty"`
	Action      string   `json:"action,omitempty"`
	ChallengeTS string   `json:"challenge_ts,omitempty"`
	Hostname    string   `json:"hostname,omitempty"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// Client verifies reCAPTCHA tokens.
type Client struct {
	httpClient *http.Client
	verifyURL  string
	secret     string
}

// NewClient constructs a new reCAPTCHA client.
func NewClient(secret string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		verifyURL:  VerifyURL,
		secret:     secret,
	}
}

// WithVerifyURL points the client at another endpoint, for tests.
func (c *Client) WithVerifyURL(u string) *Client {
	c.verifyURL = u
	return c
}

// Verify checks token with Google. remoteIP is optional.
func (c *Client) Verify(ctx context.Context, token, remoteIP string) (*VerifyResponse, error) {
	form := url.Values{}
	form.Set("secret", c.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siteverify returned status %d", resp.StatusCode)
	}

	var out VerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}
