package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/kafka"
	"github.com/NordCoder/Replypush/internal/domain/notification"
	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

type ReplyEventsKafka struct {
	p *Producer
}

func NewReplyEventsKafka(p *Producer) *ReplyEventsKafka { return &ReplyEventsKafka{p: p} }

var _ kafka.ReplyEvents = (*ReplyEventsKafka)(nil)

// PublishReplyNotified keys messages by account so one account's events stay ordered.
func (e *ReplyEventsKafka) PublishReplyNotified(ctx context.Context, ev *notification.ReplyNotified) error {
	msg, err := EncodeReplyNotified(ev)
	if err != nil {
		return err
	}
	return e.p.PublishProto(ctx, KeyFromInt64(ev.AccountID), msg)
}

// EncodeReplyNotified renders the event as a protobuf Struct. Ids travel as strings
// so int64 values survive the float64 number representation of Struct.
func EncodeReplyNotified(ev *notification.ReplyNotified) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(map[string]any{
		"event_id":    ev.EventID.String(),
		"account_id":  fmt.Sprint(ev.AccountID),
		"origin":      ev.Origin,
		"username":    ev.Username,
		"post_id":     fmt.Sprint(ev.PostID),
		"comment_id":  fmt.Sprint(ev.CommentID),
		"sender_name": ev.SenderName,
		"content":     ev.Content,
		"at":          ev.At.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode reply-notified: %w", err)
	}
	return s, nil
}

var ErrBadEvent = errors.New("malformed reply-notified event")

func DecodeReplyNotified(s *structpb.Struct) (*notification.ReplyNotified, error) {
	f := s.GetFields()
	str := func(k string) string { return f[k].GetStringValue() }

	id, err := uuid.Parse(str("event_id"))
	if err != nil {
		return nil, fmt.Errorf("%w: event_id: %v", ErrBadEvent, err)
	}
	ev := &notification.ReplyNotified{
		EventID:    id,
		Origin:     str("origin"),
		Username:   str("username"),
		SenderName: str("sender_name"),
		Content:    str("content"),
	}
	for k, dst := range map[string]*int64{
		"account_id": &ev.AccountID,
		"post_id":    &ev.PostID,
		"comment_id": &ev.CommentID,
	} {
		if _, err := fmt.Sscan(str(k), dst); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrBadEvent, k, err)
		}
	}
	at, err := time.Parse(time.RFC3339Nano, str("at"))
	if err != nil {
		return nil, fmt.Errorf("%w: at: %v", ErrBadEvent, err)
	}
	ev.At = at
	return ev, nil
}
