package account

import (
	"context"
	"time"
)

type Repo interface {
	CountByOrigin(ctx context.Context) ([]OriginCount, error)
	FindDue(ctx context.Context, origin string, threshold time.Time) ([]*Account, error)
	Save(ctx context.Context, a *Account) error
}
