package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/jackc/pgx/v5"
)

var _ account.Repo = (*AccountRepoImpl)(nil)

type AccountRepoImpl struct {
	db *DB
}

func NewAccountRepo(db *DB) *AccountRepoImpl { return &AccountRepoImpl{db: db} }

const (
	qCountByOrigin = `
SELECT origin, COUNT(*) AS cnt
FROM accounts
GROUP BY origin
ORDER BY cnt DESC;
`

	qFindDue = `
SELECT id, origin, username, auth_token, last_check_at, last_notified_id
FROM accounts
WHERE origin = $1 AND last_check_at <= $2
ORDER BY last_check_at, id;
`

	qTokensByAccounts = `
SELECT id, account_id, platform, value
FROM tokens
WHERE account_id = ANY($1)
ORDER BY account_id, id;
`

	// last_check_at only moves forward, whatever order concurrent saves land in.
	// An account deleted while it was being polled is not resurrected.
	qSaveAccount = `
UPDATE accounts
SET last_check_at    = GREATEST(last_check_at, $2),
    last_notified_id = $3
WHERE id = $1;
`
)

func (r *AccountRepoImpl) CountByOrigin(ctx context.Context) ([]account.OriginCount, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qCountByOrigin)
	if err != nil {
		return nil, fmt.Errorf("count by origin: %w", err)
	}
	defer rows.Close()

	var out []account.OriginCount
	for rows.Next() {
		var oc account.OriginCount
		if err := rows.Scan(&oc.Origin, &oc.Count); err != nil {
			return nil, fmt.Errorf("scan origin count: %w", err)
		}
		out = append(out, oc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *AccountRepoImpl) FindDue(ctx context.Context, origin string, threshold time.Time) ([]*account.Account, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qFindDue, origin, threshold.UTC())
	if err != nil {
		return nil, fmt.Errorf("find due: %w", err)
	}
	defer rows.Close()

	var (
		out  []*account.Account
		ids  []int64
		byID = map[int64]*account.Account{}
	)
	for rows.Next() {
		var a account.Account
		if err := rows.Scan(&a.ID, &a.Origin, &a.Username, &a.AuthToken, &a.LastCheckAt, &a.LastNotifiedID); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, &a)
		ids = append(ids, a.ID)
		byID[a.ID] = &a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := r.loadTokens(ctx, ids, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *AccountRepoImpl) loadTokens(ctx context.Context, ids []int64, byID map[int64]*account.Account) error {
	rows, err := r.db.Pool.Query(ctx, qTokensByAccounts, ids)
	if err != nil {
		return fmt.Errorf("query tokens: %w", err)
	}
	tokens, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (account.Token, error) {
		var (
			t        account.Token
			platform string
		)
		err := row.Scan(&t.ID, &t.AccountID, &platform, &t.Value)
		t.Platform = account.Platform(platform)
		return t, err
	})
	if err != nil {
		return fmt.Errorf("scan tokens: %w", err)
	}
	for _, t := range tokens {
		if a, ok := byID[t.AccountID]; ok {
			a.Tokens = append(a.Tokens, t)
		}
	}
	return nil
}

func (r *AccountRepoImpl) Save(ctx context.Context, a *account.Account) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	tag, err := eq.Exec(ctx, qSaveAccount, a.ID, a.LastCheckAt.UTC(), a.LastNotifiedID)
	if err != nil {
		return fmt.Errorf("save account %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save account %d: %w", a.ID, ErrNotFound)
	}
	return nil
}
