package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/NordCoder/Replypush/internal/domain/notification"
	"github.com/NordCoder/Replypush/internal/domain/outbox"
	"github.com/NordCoder/Replypush/internal/domain/reply"
	outboxsvc "github.com/NordCoder/Replypush/internal/outbox"
	pginfra "github.com/NordCoder/Replypush/internal/repository/postgres"
	"github.com/google/uuid"
)

// Accounts backs the poller with the account repo, and journals pushed replies through the outbox
// in the same transaction as the checkpoint.
type Accounts struct {
	R      account.Repo
	Tx     pginfra.Transactor
	Outbox outbox.Repository
	Clock  notification.Clock
}

func (a Accounts) CountByOrigin(ctx context.Context) ([]account.OriginCount, error) {
	return a.R.CountByOrigin(ctx)
}

func (a Accounts) FindDue(ctx context.Context, origin string, threshold time.Time) ([]*account.Account, error) {
	return a.R.FindDue(ctx, origin, threshold)
}

func (a Accounts) Save(ctx context.Context, acc *account.Account) error {
	return a.R.Save(ctx, acc)
}

func (a Accounts) SaveNotified(ctx context.Context, acc *account.Account, r reply.Reply) error {
	ev := &notification.ReplyNotified{
		EventID:    uuid.New(),
		AccountID:  acc.ID,
		Origin:     acc.Origin,
		Username:   acc.Username,
		PostID:     r.PostID,
		CommentID:  r.CommentID,
		SenderName: r.SenderName,
		Content:    r.Content,
		At:         a.Clock.Now().UTC(),
	}
	data, err := outboxsvc.EncodeReplyNotified(ev)
	if err != nil {
		return err
	}

	return a.Tx.WithTx(ctx, func(ctx context.Context) error {
		if err := a.R.Save(ctx, acc); err != nil {
			return err
		}
		if err := a.Outbox.Enqueue(ctx, outboxsvc.ReplyNotifiedKey(acc.ID, r.CommentID), outbox.KindReplyNotified, data); err != nil {
			return fmt.Errorf("journal reply %d: %w", r.CommentID, err)
		}
		return nil
	})
}
