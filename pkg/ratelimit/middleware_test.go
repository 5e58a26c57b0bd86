package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/client"
)

func newTestMiddleware(perAccountBurst int) *Middleware {
	return NewMiddleware(&Config{
		PerAccountEnabled:    true,
		PerAccountBurst:      perAccountBurst,
		PerAccountRefillRate: 0.001,
		BucketTTL:            time.Hour,
	})
}

func serve(t *testing.T, handler http.Handler, user *client.AuthUser) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if user != nil {
		req = req.WithContext(client.WithAuthUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestAccountHandler_LimitsByAccount(t *testing.T) {
	m := newTestMiddleware(2)
	handler := m.AccountHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	alice := &client.AuthUser{AccountID: uuid.New()}
	bob := &client.AuthUser{AccountID: uuid.New()}

	for i := 0; i < 2; i++ {
		if code := serve(t, handler, alice); code != http.StatusOK {
			t.Errorf("Request %d for alice should pass, got %d", i+1, code)
		}
	}
	if code := serve(t, handler, alice); code != http.StatusTooManyRequests {
		t.Errorf("3rd request for alice should be limited, got %d", code)
	}

	// Buckets are keyed per account
	if code := serve(t, handler, bob); code != http.StatusOK {
		t.Errorf("Request for bob should pass, got %d", code)
	}
}

func TestAccountHandler_PassesUnauthenticated(t *testing.T) {
	m := newTestMiddleware(1)
	handler := m.AccountHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// No caller identity: the per-account limit does not apply
	for i := 0; i < 3; i++ {
		if code := serve(t, handler, nil); code != http.StatusOK {
			t.Errorf("Unauthenticated request %d should pass, got %d", i+1, code)
		}
	}
}

func TestHandler_DoesNotConsumeAccountBucket(t *testing.T) {
	m := newTestMiddleware(1)
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	alice := &client.AuthUser{AccountID: uuid.New()}

	// The connection-scoped stage ignores account identity entirely
	for i := 0; i < 3; i++ {
		if code := serve(t, handler, alice); code != http.StatusOK {
			t.Errorf("Request %d should pass, got %d", i+1, code)
		}
	}
}
