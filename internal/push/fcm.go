// Package push delivers reply notifications to mobile devices through Firebase Cloud Messaging.
package push

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxMulticastTokens is the FCM limit of tokens per multicast request.
const maxMulticastTokens = 500

var _ push.Dispatcher = (*FCM)(nil)

type multicastSender interface {
	SendEachForMulticast(ctx context.Context, m *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type FCM struct {
	sender multicastSender
	log    *zap.Logger
}

// NewFCM initialises the firebase app. Credentials come from cfg.CredentialsFile, or from the
// application default credentials when it is empty.
func NewFCM(ctx context.Context, cfg config.Push, log *zap.Logger) (*FCM, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init messaging client: %w", err)
	}
	return newFCM(client, log), nil
}

func newFCM(s multicastSender, log *zap.Logger) *FCM {
	if log == nil {
		log = zap.L()
	}
	return &FCM{sender: s, log: log.With(zap.String("component", "push.fcm"))}
}

// Dispatch sends p to every token and reports one Result per token, in token order.
// The returned error is non-nil only when no chunk could be sent at all.
func (f *FCM) Dispatch(ctx context.Context, p push.Payload, tokens []string) ([]push.Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	out := make([]push.Result, 0, len(tokens))
	var (
		errs   []error
		chunks int
	)
	for start := 0; start < len(tokens); start += maxMulticastTokens {
		end := min(start+maxMulticastTokens, len(tokens))
		chunk := tokens[start:end]
		chunks++

		resp, err := f.sender.SendEachForMulticast(ctx, buildMessage(p, chunk))
		if err != nil {
			f.log.Warn("multicast failed", zap.Int("tokens", len(chunk)), zap.Error(err))
			errs = append(errs, err)
			for _, t := range chunk {
				out = append(out, push.Result{Token: t, Err: err})
			}
			continue
		}
		out = append(out, mapResponses(chunk, resp)...)
	}

	if len(errs) == chunks {
		return out, fmt.Errorf("fcm multicast: %w", errors.Join(errs...))
	}
	return out, nil
}

func mapResponses(chunk []string, resp *messaging.BatchResponse) []push.Result {
	out := make([]push.Result, len(chunk))
	for i, t := range chunk {
		out[i] = push.Result{Token: t}
		if resp == nil || i >= len(resp.Responses) || resp.Responses[i] == nil {
			out[i].Err = errors.New("fcm: missing response")
			continue
		}
		r := resp.Responses[i]
		out[i].Success = r.Success
		out[i].MessageID = r.MessageID
		out[i].Err = r.Error
	}
	return out
}

func buildMessage(p push.Payload, tokens []string) *messaging.MulticastMessage {
	badge := p.Badge
	ttl := time.Until(p.Expiry)
	if ttl < 0 {
		ttl = 0
	}
	data := replyData(p.Reply)

	// the alert already carries the text; APNs only needs the ids to open the thread
	custom := map[string]interface{}{
		"postId":    data["postId"],
		"commentId": data["commentId"],
	}

	return &messaging.MulticastMessage{
		Tokens: tokens,
		Data:   data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			TTL:      &ttl,
			Notification: &messaging.AndroidNotification{
				Body:  p.Alert,
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-topic":      p.Topic,
				"apns-expiration": strconv.FormatInt(p.Expiry.Unix(), 10),
				"apns-priority":   "10",
			},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					AlertString: p.Alert,
					Badge:       &badge,
					Sound:       p.Sound,
				},
				CustomData: custom,
			},
		},
	}
}
