package push

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStreamsPublishedEvents(t *testing.T) {
	hub := NewHub(time.Hour) // heartbeat out of the way

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "chan-a")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return hub.SubscriberCount("chan-a") == 1 },
		time.Second, 5*time.Millisecond)

	hub.Publish("chan-a", Event{Name: "notification.created", Data: json.RawMessage(`{"id":"n1"}`)})
	hub.Publish("chan-b", Event{Name: "notification.created", Data: json.RawMessage(`{"id":"other"}`)})

	reader := bufio.NewReader(resp.Body)
	line1, err := reader.ReadString('\n')
	require.NoError(t, err)
	line2, err := reader.ReadString('\n')
	require.NoError(t, err)

	assert.Equal(t, "event: notification.created", strings.TrimSpace(line1))
	assert.Equal(t, `data: {"id":"n1"}`, strings.TrimSpace(line2))
}

func TestSubscriberAttachedBeforeAck(t *testing.T) {
	hub := NewHub(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "chan-a")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Receiving the response headers means the ack went out, so the
	// subscriber must already be attached and this event cannot be missed.
	assert.Equal(t, 1, hub.SubscriberCount("chan-a"))
	hub.Publish("chan-a", Event{Name: "notification.created", Data: json.RawMessage(`{"id":"n1"}`)})

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: notification.created", strings.TrimSpace(line))
}

func TestDetachOnClientDisconnect(t *testing.T) {
	hub := NewHub(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "chan-a")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.SubscriberCount("chan-a") == 1 },
		time.Second, 5*time.Millisecond)

	resp.Body.Close()
	require.Eventually(t, func() bool { return hub.SubscriberCount("chan-a") == 0 },
		time.Second, 5*time.Millisecond)
}

func TestHeartbeatKeepsStreamAlive(t *testing.T) {
	hub := NewHub(10 * time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, "chan-a")
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, ": ping", strings.TrimSpace(line))
}

func TestPublishWithNoSubscribersIsHarmless(t *testing.T) {
	hub := NewHub(time.Hour)
	hub.Publish("empty", Event{Name: "notification.created", Data: json.RawMessage(`{}`)})
	assert.Zero(t, hub.SubscriberCount("empty"))
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	hub := NewHub(time.Hour)
	id, sub := hub.attach("chan-a")
	defer hub.detach("chan-a", id)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(sub.ch)+10; i++ {
			hub.Publish("chan-a", Event{Name: "notification.created", Data: json.RawMessage(`{}`)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}
