// Package mailjet is a minimal client for the Mailjet campaign draft API.
package mailjet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jobbsy/jobsletter/internal/pkg/httpretry"
)

// Client is the Mailjet API client. Campaign calls are not idempotent, so
// the client never retries.
type Client struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a new Mailjet API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		secretKey:  cfg.SecretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

// doRequest performs an authenticated request and decodes the envelope.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.apiKey, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{}
		_ = json.Unmarshal(respBody, apiErr)
		apiErr.StatusCode = resp.StatusCode
		if apiErr.ErrorMessage == "" {
			apiErr.ErrorMessage = strings.TrimSpace(string(respBody))
		}
		return nil, apiErr
	}

	out := &Response{}
	if len(bytes.TrimSpace(respBody)) == 0 {
		return out, nil
	}
	dec := json.NewDecoder(bytes.NewReader(respBody))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return out, nil
}

// CreateCampaignDraft creates a new campaign draft.
func (c *Client) CreateCampaignDraft(ctx context.Context, r CreateCampaignDraftRequest) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, "/v3/REST/campaigndraft", r)
}

// CreateCampaignDraftContent sets the HTML and text parts of a draft.
func (c *Client) CreateCampaignDraftContent(ctx context.Context, r CreateCampaignDraftContentRequest) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/v3/REST/campaigndraft/%d/detailcontent", r.DraftID), r)
}

// TestCampaignDraft sends the draft to the given recipients only.
func (c *Client) TestCampaignDraft(ctx context.Context, r TestCampaignDraftRequest) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/v3/REST/campaigndraft/%d/test", r.DraftID), r)
}

// SendCampaignDraft sends the draft to its contact list immediately.
func (c *Client) SendCampaignDraft(ctx context.Context, r SendCampaignDraftRequest) (*Response, error) {
	return c.doRequest(ctx, http.MethodPost, fmt.Sprintf("/v3/REST/campaigndraft/%d/send", r.DraftID), nil)
}
