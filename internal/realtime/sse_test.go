package realtime

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSETransportSubscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/events/tenant.t1.user.u1.notifications", r.URL.Path)
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		fmt.Fprint(w, ": ping\n\n")
		fmt.Fprint(w, "event: notification.created\ndata: {\"id\":\"n1\"}\n\n")
		fmt.Fprint(w, "event: something.else\ndata: {\"id\":\"n2\"}\n\n")
		fmt.Fprint(w, "event: notification.created\ndata: {\"id\":\"n3\"}\n\n")
		flusher.Flush()
	}))
	defer srv.Close()

	transport := NewSSETransport(srv.URL, "token123")
	sub, err := transport.Subscribe(context.Background(), "tenant.t1.user.u1.notifications")
	require.NoError(t, err)
	defer sub.Close()

	var got []string
	for raw := range sub.Events() {
		got = append(got, string(raw))
	}
	assert.Equal(t, []string{`{"id":"n1"}`, `{"id":"n3"}`}, got,
		"only notification.created events are delivered")
}

func TestSSETransportRejectedStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	transport := NewSSETransport(srv.URL, "token123")
	_, err := transport.Subscribe(context.Background(), "tenant.t2.user.u9.notifications")
	require.Error(t, err)
}

func TestSSESubscriptionEndsWhenCallerContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	transport := NewSSETransport(srv.URL, "token123")
	sub, err := transport.Subscribe(ctx, "c")
	require.NoError(t, err)
	defer sub.Close()

	cancel()

	select {
	case _, open := <-sub.Events():
		assert.False(t, open, "cancelling the subscribe context must end the stream")
	case <-time.After(time.Second):
		t.Fatal("events channel did not close after context cancellation")
	}
}

func TestSSESubscriptionCloseEndsStream(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		flusher.Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	transport := NewSSETransport(srv.URL, "token123")
	sub, err := transport.Subscribe(context.Background(), "c")
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close()) // idempotent

	select {
	case _, open := <-sub.Events():
		assert.False(t, open, "events channel must close after Close")
	case <-time.After(time.Second):
		t.Fatal("events channel did not close")
	}
}
