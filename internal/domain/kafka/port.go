package kafka

import (
	"context"

	"github.com/NordCoder/Replypush/internal/domain/notification"
)

type ReplyEvents interface {
	PublishReplyNotified(ctx context.Context, ev *notification.ReplyNotified) error
}
