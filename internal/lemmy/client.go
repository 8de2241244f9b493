// Package lemmy fetches the newest unread reply of an account from a Lemmy instance.
package lemmy

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/reply"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	repliesPath         = "/api/v3/user/replies"
	maxResponseBodySize = 1 << 20
)

var _ reply.Fetcher = (*Client)(nil)

type Client struct {
	c   *http.Client
	cfg config.Lemmy
}

// StatusError is returned for non-2xx answers from the instance.
type StatusError struct {
	Origin string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lemmy %s: http %d: %s", e.Origin, e.Code, e.Body)
}

func New(cfg config.Lemmy) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   2,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
	}
	return &Client{
		c: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(transport, otelhttp.WithSpanNameFormatter(spanName)),
		},
		cfg: cfg,
	}
}

type repliesResponse struct {
	Replies []struct {
		Comment struct {
			ID      int64  `json:"id"`
			Content string `json:"content"`
		} `json:"comment"`
		Creator struct {
			Name string `json:"name"`
		} `json:"creator"`
		Post struct {
			ID int64 `json:"id"`
		} `json:"post"`
	} `json:"replies"`
}

// LatestReply asks origin for at most one unread reply, newest first.
// A nil reply with a nil error means the account has nothing unread.
func (cl *Client) LatestReply(ctx context.Context, origin, credential string) (*reply.Reply, error) {
	q := url.Values{}
	q.Set("sort", "New")
	q.Set("page", "1")
	q.Set("limit", "1")
	q.Set("unread_only", "true")
	u := url.URL{Scheme: cl.cfg.Scheme, Host: origin, Path: repliesPath, RawQuery: q.Encode()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)
	if cl.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cl.cfg.UserAgent)
	}

	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get replies from %s: %w", origin, redact(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("read replies from %s: %w", origin, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Origin: origin, Code: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	var rr repliesResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("decode replies from %s: %w", origin, err)
	}
	if len(rr.Replies) == 0 {
		return nil, nil
	}
	r := rr.Replies[0]
	return &reply.Reply{
		PostID:     r.Post.ID,
		CommentID:  r.Comment.ID,
		SenderName: r.Creator.Name,
		Content:    r.Comment.Content,
	}, nil
}

func (cl *Client) Close() {
	cl.c.CloseIdleConnections()
}

func spanName(_ string, r *http.Request) string {
	return "lemmy " + r.Method + " " + r.URL.Path
}

// redact drops the query from a transport error so nothing request-specific ends up in logs.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			u.User = nil
			ue.URL = u.String()
		}
	}
	return err
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
