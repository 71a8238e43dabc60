package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func newTestClient(client *http.Client) *resilientClient {
	return &resilientClient{
		client: client,
		backoff: backoff{
			maxRetries: 3,
			initial:    time.Millisecond,
			max:        5 * time.Millisecond,
		},
		circuit: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "test",
			MaxRequests: 5,
			Interval:    time.Minute,
			Timeout:     time.Minute,
		}),
	}
}

// TestGetRetriesServerErrors verifies that transient 5xx responses are
// retried until the provider recovers.
func TestGetRetriesServerErrors(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := newTestClient(srv.Client())

	resp, err := rc.get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if hits != 3 {
		t.Fatalf("expected 3 attempts, got %d", hits)
	}
}

// TestGetExhaustsRetries verifies that a persistently failing provider
// surfaces the server error after the retry budget is spent.
func TestGetExhaustsRetries(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rc := newTestClient(srv.Client())

	_, err := rc.get(context.Background(), srv.URL)
	if !errors.Is(err, errServerError) {
		t.Fatalf("expected errServerError, got %v", err)
	}
	if hits != 4 {
		t.Fatalf("expected 4 attempts (initial + 3 retries), got %d", hits)
	}
}

// TestGetNoRetryOnClientError verifies that a 4xx response is not
// retried.
func TestGetNoRetryOnClientError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	rc := newTestClient(srv.Client())

	_, err := rc.get(context.Background(), srv.URL)
	if !errors.Is(err, errUnexpected) {
		t.Fatalf("expected errUnexpected, got %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected a single attempt, got %d", hits)
	}
}

// TestGetHonorsContext verifies that a canceled context stops the retry
// loop immediately.
func TestGetHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	rc := newTestClient(srv.Client())
	rc.backoff.initial = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := rc.get(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
