package realtime

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const eventNotificationCreated = "notification.created"

// SSETransport subscribes to the notification server's Server-Sent Events
// stream. The 200 response on the stream request is the subscription
// acknowledgment.
type SSETransport struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewSSETransport builds a transport against baseURL (no trailing slash),
// authenticating with the given bearer token.
func NewSSETransport(baseURL, token string) *SSETransport {
	return &SSETransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		// No overall timeout: the stream stays open until Close.
		client: &http.Client{},
	}
}

// Subscribe opens the event stream for channel. The stream lives until Close
// or until ctx is cancelled.
func (t *SSETransport) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	streamCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, t.baseURL+"/v1/events/"+channel, nil)
	if err != nil {
		cancel()
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		cancel()
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("event stream rejected: %s", resp.Status)
	}

	sub := &sseSubscription{
		events: make(chan json.RawMessage, 16),
		cancel: cancel,
	}
	go sub.read(resp)
	return sub, nil
}

type sseSubscription struct {
	events chan json.RawMessage
	cancel context.CancelFunc
	once   sync.Once
}

func (s *sseSubscription) Events() <-chan json.RawMessage { return s.events }

func (s *sseSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// read parses the text/event-stream wire format: "event:"/"data:" lines
// terminated by a blank line. Heartbeat comments (lines starting with ':')
// are skipped. The events channel closes when the stream ends.
func (s *sseSubscription) read(resp *http.Response) {
	defer resp.Body.Close()
	defer close(s.events)

	var eventName, data string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if eventName == eventNotificationCreated && data != "" {
				select {
				case s.events <- json.RawMessage(data):
				case <-time.After(5 * time.Second):
					// Receiver gone and channel full; drop rather than wedge.
				}
			}
			eventName, data = "", ""
		case strings.HasPrefix(line, ":"):
			// heartbeat
		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		}
	}
}
