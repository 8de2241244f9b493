package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ReplyNotified records a reply that was handed to the push dispatcher.
type ReplyNotified struct {
	EventID    uuid.UUID `json:"event_id"`
	AccountID  int64     `json:"account_id"`
	Origin     string    `json:"origin"`
	Username   string    `json:"username"`
	PostID     int64     `json:"post_id"`
	CommentID  int64     `json:"comment_id"`
	SenderName string    `json:"sender_name"`
	Content    string    `json:"content"`
	At         time.Time `json:"at"`
}

type Clock interface {
	Now() time.Time
}

type Repo interface {
	Create(ctx context.Context, n *ReplyNotified) (bool, error)
}
