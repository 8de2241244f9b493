package poller

import "github.com/NordCoder/Replypush/internal/domain/account"

// buffer holds due accounts, oldest check first. Only the worker loop touches it.
type buffer struct {
	items []*account.Account
}

func (b *buffer) load(as []*account.Account) {
	b.items = append(b.items, as...)
}

func (b *buffer) pop() *account.Account {
	if len(b.items) == 0 {
		return nil
	}
	a := b.items[0]
	b.items[0] = nil
	b.items = b.items[1:]
	return a
}

func (b *buffer) len() int { return len(b.items) }
