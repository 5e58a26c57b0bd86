package idp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workspace/pkg/errors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestLocalVerifier(t *testing.T) {
	v := NewLocalVerifier(testSecret, "", "")

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"sub":   "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
		"email": "alice@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	subject, err := v.Verify(context.Background(), tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30", subject.ID)
	assert.Equal(t, "alice@example.com", subject.Email)
}

func TestLocalVerifier_RejectsBadSignature(t *testing.T) {
	v := NewLocalVerifier(testSecret, "", "")

	tokenStr := signToken(t, "other-secret", jwt.MapClaims{
		"sub": "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), tokenStr)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestLocalVerifier_RejectsExpired(t *testing.T) {
	v := NewLocalVerifier(testSecret, "", "")

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"sub": "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), tokenStr)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestLocalVerifier_RejectsMissingSubject(t *testing.T) {
	v := NewLocalVerifier(testSecret, "", "")

	tokenStr := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	_, err := v.Verify(context.Background(), tokenStr)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestLocalVerifier_EnforcesIssuerAndAudience(t *testing.T) {
	v := NewLocalVerifier(testSecret, "idp.example.com", "workspace")

	good := signToken(t, testSecret, jwt.MapClaims{
		"sub": "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
		"iss": "idp.example.com",
		"aud": "workspace",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err := v.Verify(context.Background(), good)
	assert.NoError(t, err)

	wrongIssuer := signToken(t, testSecret, jwt.MapClaims{
		"sub": "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
		"iss": "evil.example.com",
		"aud": "workspace",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	_, err = v.Verify(context.Background(), wrongIssuer)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}

func TestRemoteVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/verify", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		if body["token"] != "good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(Subject{
			ID:    "407e36cc-2f05-4a3f-b739-1e8e1e9b3b30",
			Email: "alice@example.com",
		})
	}))
	defer srv.Close()

	v := NewRemoteVerifier(srv.URL, nil)

	subject, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", subject.Email)

	_, err = v.Verify(context.Background(), "bad-token")
	assert.True(t, errors.IsCode(err, errors.ErrCodeTokenInvalid))
}
