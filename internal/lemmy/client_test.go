package lemmy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, string) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := New(config.Lemmy{Scheme: "http", Timeout: time.Second, UserAgent: "Replypush-test"})
	t.Cleanup(c.Close)
	return c, u.Host
}

func TestLatestReply_Request(t *testing.T) {
	var got *http.Request
	c, origin := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		_, _ = w.Write([]byte(`{"replies":[]}`))
	})

	_, err := c.LatestReply(context.Background(), origin, "jwt-123")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "/api/v3/user/replies", got.URL.Path)
	q := got.URL.Query()
	assert.Equal(t, "New", q.Get("sort"))
	assert.Equal(t, "1", q.Get("page"))
	assert.Equal(t, "1", q.Get("limit"))
	assert.Equal(t, "true", q.Get("unread_only"))
	assert.False(t, q.Has("auth"))
	assert.Equal(t, "Bearer jwt-123", got.Header.Get("Authorization"))
	assert.Equal(t, "Replypush-test", got.Header.Get("User-Agent"))
}

func TestLatestReply_Decodes(t *testing.T) {
	c, origin := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"replies":[{"comment":{"id":987,"content":"great point"},"creator":{"name":"bob"},"post":{"id":55}}]}`))
	})

	r, err := c.LatestReply(context.Background(), origin, "jwt")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, int64(55), r.PostID)
	assert.Equal(t, int64(987), r.CommentID)
	assert.Equal(t, "bob", r.SenderName)
	assert.Equal(t, "great point", r.Content)
}

func TestLatestReply_NoReplies(t *testing.T) {
	c, origin := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"replies":[]}`))
	})

	r, err := c.LatestReply(context.Background(), origin, "jwt")
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestLatestReply_StatusError(t *testing.T) {
	c, origin := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"not_logged_in"}`, http.StatusUnauthorized)
	})

	r, err := c.LatestReply(context.Background(), origin, "expired")
	assert.Nil(t, r)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Contains(t, se.Body, "not_logged_in")
}

func TestLatestReply_BadJSON(t *testing.T) {
	c, origin := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	})

	_, err := c.LatestReply(context.Background(), origin, "jwt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode replies")
}

func TestLatestReply_Timeout(t *testing.T) {
	release := make(chan struct{})
	c, origin := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.LatestReply(ctx, origin, "jwt")
	require.Error(t, err)
}

func TestLatestReply_TransportErrorHidesCredential(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	c := New(config.Lemmy{Scheme: "http", Timeout: time.Second})
	t.Cleanup(c.Close)

	_, err := c.LatestReply(context.Background(), host, "SECRET-JWT-123")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET-JWT-123")
	assert.Contains(t, err.Error(), "/api/v3/user/replies")
}

func TestRedact(t *testing.T) {
	err := redact(&url.Error{Op: "Get", URL: "http://h/api/v3/user/replies?auth=tok&limit=1", Err: errors.New("refused")})
	assert.Equal(t, `Get "http://h/api/v3/user/replies": refused`, err.Error())

	plain := errors.New("boom")
	assert.Same(t, plain, redact(plain))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, strings.Repeat("x", 4)+"...", truncate(strings.Repeat("x", 10), 4))

	// "é" is two bytes; cutting at 3 would split the second one
	got := truncate("éé", 3)
	assert.Equal(t, "é...", got)
	assert.True(t, utf8.ValidString(got))
}
