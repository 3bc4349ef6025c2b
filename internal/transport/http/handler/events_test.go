package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-notify-sync/internal/domain"
	"github.com/go-notify-sync/internal/push"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStream_NoClaims(t *testing.T) {
	h := NewEventsHandler(push.NewHub(time.Hour))
	r := httptest.NewRequest(http.MethodGet, "/v1/events/some-channel", nil)
	rr := httptest.NewRecorder()
	h.Stream(rr, r)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestStream_ForeignChannelForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewEventsHandler(push.NewHub(time.Hour))

	// u1@t1 asks for u2's channel; knowing the name must not grant access.
	foreign := domain.ChannelName("t1", "u2")
	r := bearerReq(t, p, http.MethodGet, "/v1/events/"+foreign, "u1", "t1", nil)
	r = withChiParam(r, "channel", foreign)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Stream), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStream_CrossTenantChannelForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	h := NewEventsHandler(push.NewHub(time.Hour))

	foreign := domain.ChannelName("t2", "u1")
	r := bearerReq(t, p, http.MethodGet, "/v1/events/"+foreign, "u1", "t1", nil)
	r = withChiParam(r, "channel", foreign)
	rr := httptest.NewRecorder()
	serveAuthed(p, http.HandlerFunc(h.Stream), rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestStream_OwnChannelAccepted(t *testing.T) {
	p := newTestJWTProvider(t)
	hub := push.NewHub(time.Hour)
	h := NewEventsHandler(hub)

	own := domain.ChannelName("t1", "u1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = withChiParam(r, "channel", own)
		serveAuthed(p, http.HandlerFunc(h.Stream), w, r)
	}))
	defer srv.Close()

	token, err := p.Sign("u1", "t1")
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/v1/events/"+own, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return hub.SubscriberCount(own) == 1 },
		time.Second, 5*time.Millisecond)
}
