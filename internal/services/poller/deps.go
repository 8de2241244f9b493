package poller

import (
	"context"
	"time"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/NordCoder/Replypush/internal/domain/notification"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"github.com/NordCoder/Replypush/internal/domain/reply"
	"go.uber.org/zap"
)

// Store is the persistence the pool and its workers need.
type Store interface {
	CountByOrigin(ctx context.Context) ([]account.OriginCount, error)
	FindDue(ctx context.Context, origin string, threshold time.Time) ([]*account.Account, error)
	Save(ctx context.Context, a *account.Account) error
	// SaveNotified persists the checkpoint of an account whose reply r was just pushed.
	SaveNotified(ctx context.Context, a *account.Account, r reply.Reply) error
}

// Deps is shared, read-only, by the pool and every worker it starts.
type Deps struct {
	Log     *zap.Logger
	Store   Store
	Fetcher reply.Fetcher
	Push    push.Dispatcher
	Clock   notification.Clock

	Poller       config.PollerCfg
	PushCfg      config.Push
	FetchTimeout time.Duration
}
