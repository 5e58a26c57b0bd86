package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/tendant/simple-workspace/pkg/errors"
)

// TokenPayload is the token-bearing payload returned by the provider on
// sign-in and sign-up.
type TokenPayload struct {
	SubjectID    string `json:"subject_id"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// Client talks to the external identity provider for credential flows.
// Token cryptography and credential storage live entirely on the provider
// side.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an identity provider client
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// SignIn exchanges credentials for a token payload
func (c *Client) SignIn(ctx context.Context, email, password string) (*TokenPayload, error) {
	return c.post(ctx, "/signin", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignUp registers a new identity and returns its token payload
func (c *Client) SignUp(ctx context.Context, name, email, password string) (*TokenPayload, error) {
	return c.post(ctx, "/signup", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
	})
}

func (c *Client) post(ctx context.Context, path string, payload map[string]string) (*TokenPayload, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode provider request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build provider request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "identity provider unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, errors.Unauthorized("invalid credentials")
	case resp.StatusCode == http.StatusConflict:
		return nil, errors.Conflict("identity already exists")
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, errors.Newf(errors.ErrCodeInternal, "provider returned %d", resp.StatusCode)
	}

	var tokens TokenPayload
	if err := json.NewDecoder(resp.Body).Decode(&tokens); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to decode provider response")
	}

	return &tokens, nil
}
