package postgres

import (
	"context"
	"fmt"

	"github.com/NordCoder/Replypush/internal/domain/notification"
)

var _ notification.Repo = (*NotificationRepoImpl)(nil)

type NotificationRepoImpl struct{ db *DB }

func NewNotificationRepo(db *DB) *NotificationRepoImpl { return &NotificationRepoImpl{db: db} }

const qNotifInsert = `
INSERT INTO notifications (event_id, account_id, origin, username, post_id, comment_id, sender_name, content, sent_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (event_id) DO NOTHING;
`

// Create reports false when the event was already journaled.
func (r *NotificationRepoImpl) Create(ctx context.Context, n *notification.ReplyNotified) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Pool.Exec(ctx, qNotifInsert,
		n.EventID,
		n.AccountID,
		n.Origin,
		n.Username,
		n.PostID,
		n.CommentID,
		n.SenderName,
		n.Content,
		n.At.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
