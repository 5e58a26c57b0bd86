package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tendant/simple-workspace/pkg/errors"
)

// Subject is the identity resolved from a verified credential.
type Subject struct {
	ID    string `json:"subject_id"`
	Email string `json:"email,omitempty"`
}

// TokenVerifier verifies a bearer credential and resolves the subject.
// Verification may be local (cryptographic, fast path) or remote (a network
// round-trip to the provider); callers treat both the same way. A single
// attempt is made, there is no retry.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Subject, error)
}

// LocalVerifier verifies HMAC-signed tokens issued by the provider without
// a network call.
type LocalVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewLocalVerifier creates a verifier for HS256 tokens
func NewLocalVerifier(secret, issuer, audience string) *LocalVerifier {
	return &LocalVerifier{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
	}
}

// Verify parses and validates the token and extracts the subject
func (v *LocalVerifier) Verify(ctx context.Context, tokenStr string) (*Subject, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, "token verification failed")
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, errors.InvalidToken("token has no subject")
	}

	subject := &Subject{ID: sub}
	if email, ok := claims["email"].(string); ok {
		subject.Email = email
	}
	return subject, nil
}

// RemoteVerifier verifies tokens with a network call to the provider's
// verification endpoint.
type RemoteVerifier struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteVerifier creates a verifier that delegates to the provider
func NewRemoteVerifier(baseURL string, httpClient *http.Client) *RemoteVerifier {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &RemoteVerifier{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// Verify posts the token to the provider and resolves the subject
func (v *RemoteVerifier) Verify(ctx context.Context, tokenStr string) (*Subject, error) {
	body, err := json.Marshal(map[string]string{"token": tokenStr})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to encode verification request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/verify", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to build verification request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.httpClient.Do(req)
	if err != nil {
		// Provider failures are indistinguishable from bad tokens to the caller
		return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, "token verification failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Provider rejected token", "status", resp.StatusCode)
		return nil, errors.InvalidToken(fmt.Sprintf("provider rejected token: %d", resp.StatusCode))
	}

	var subject Subject
	if err := json.NewDecoder(resp.Body).Decode(&subject); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, "failed to decode verification response")
	}
	if subject.ID == "" {
		return nil, errors.InvalidToken("provider returned no subject")
	}

	return &subject, nil
}
