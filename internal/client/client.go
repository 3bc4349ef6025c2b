// Package client is the tab's HTTP client for the notification API.
// All calls are fire-and-forget from the subsystem's point of view: errors
// are returned for retry bookkeeping but never revert local state.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-notify-sync/internal/domain"
)

// Client talks to the notification API with a bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// MarkNotificationRead marks one notification read on the server.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPut, "/v1/notifications/"+id+"/read", nil)
}

// MarkAllNotificationsRead marks every notification of the caller read.
func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPut, "/v1/notifications/read-all", nil)
}

// notificationPage mirrors the server's paginated envelope.
type notificationPage struct {
	Data       []domain.Notification `json:"data"`
	NextCursor string                `json:"next_cursor"`
}

// ListNotifications fetches one page of the caller's notifications, newest
// first. cursor is the opaque token from the previous page; pass "" for the
// first page. The returned cursor is empty when the listing is exhausted.
func (c *Client) ListNotifications(ctx context.Context, cursor string, perPage int) ([]domain.Notification, string, error) {
	path := "/v1/notifications?per_page=" + strconv.Itoa(perPage)
	if cursor != "" {
		path += "&cursor=" + url.QueryEscape(cursor)
	}
	var out notificationPage
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, "", err
	}
	return out.Data, out.NextCursor, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
