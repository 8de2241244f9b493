package poller

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"github.com/NordCoder/Replypush/internal/domain/reply"
	"go.uber.org/zap"
)

var errNotFound = errors.New("not found")

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type notified struct {
	AccountID int64
	CommentID int64
}

type memStore struct {
	mu        sync.Mutex
	accounts  map[int64]*account.Account
	counts    []account.OriginCount
	countErr  error
	findCalls int
	saves     []account.Account
	notified  []notified
}

func newMemStore(accounts ...*account.Account) *memStore {
	s := &memStore{accounts: make(map[int64]*account.Account)}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) setCounts(c ...account.OriginCount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = c
	s.countErr = nil
}

func (s *memStore) failCounts(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.countErr = err
}

func (s *memStore) CountByOrigin(context.Context) ([]account.OriginCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.countErr != nil {
		return nil, s.countErr
	}
	return append([]account.OriginCount(nil), s.counts...), nil
}

func (s *memStore) FindDue(_ context.Context, origin string, threshold time.Time) ([]*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	var out []*account.Account
	for _, a := range s.accounts {
		if a.Origin == origin && !a.LastCheckAt.After(threshold) {
			cp := *a
			cp.Tokens = append([]account.Token(nil), a.Tokens...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastCheckAt.Equal(out[j].LastCheckAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastCheckAt.Before(out[j].LastCheckAt)
	})
	return out, nil
}

func (s *memStore) Save(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(a)
}

func (s *memStore) saveLocked(a *account.Account) error {
	cur, ok := s.accounts[a.ID]
	if !ok {
		return errNotFound
	}
	if a.LastCheckAt.After(cur.LastCheckAt) {
		cur.LastCheckAt = a.LastCheckAt
	}
	cur.LastNotifiedID = a.LastNotifiedID
	s.saves = append(s.saves, *a)
	return nil
}

func (s *memStore) SaveNotified(_ context.Context, a *account.Account, r reply.Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.saveLocked(a); err != nil {
		return err
	}
	s.notified = append(s.notified, notified{AccountID: a.ID, CommentID: r.CommentID})
	return nil
}

func (s *memStore) snapshot(id int64) account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

func (s *memStore) findDueCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

func (s *memStore) savesOf(id int64) []account.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []account.Account
	for _, a := range s.saves {
		if a.ID == id {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) notifiedList() []notified {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notified(nil), s.notified...)
}

// fetcher answers by credential. A nil reply means "no reply".
type fetcher struct {
	mu      sync.Mutex
	replies map[string]*reply.Reply
	errs    map[string]error
	calls   []string
	block   chan struct{}
	entered chan struct{}
}

func newFetcher() *fetcher {
	return &fetcher{replies: map[string]*reply.Reply{}, errs: map[string]error{}}
}

func (f *fetcher) LatestReply(_ context.Context, _ string, credential string) (*reply.Reply, error) {
	f.mu.Lock()
	f.calls = append(f.calls, credential)
	block, entered := f.block, f.entered
	r, err := f.replies[credential], f.errs[credential]
	f.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (f *fetcher) callList() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fetcher) countFor(credential string) int {
	n := 0
	for _, c := range f.callList() {
		if c == credential {
			n++
		}
	}
	return n
}

type dispatch struct {
	Payload push.Payload
	Tokens  []string
}

type dispatcher struct {
	mu    sync.Mutex
	calls []dispatch
}

func (d *dispatcher) Dispatch(_ context.Context, p push.Payload, tokens []string) ([]push.Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatch{Payload: p, Tokens: tokens})
	out := make([]push.Result, len(tokens))
	for i, t := range tokens {
		out[i] = push.Result{Token: t, Success: true}
	}
	return out, nil
}

func (d *dispatcher) callList() []dispatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]dispatch(nil), d.calls...)
}

type deps struct {
	*Deps
	store *memStore
	fetch *fetcher
	push  *dispatcher
}

func newDeps(t *testing.T, store *memStore) deps {
	t.Helper()
	f := newFetcher()
	p := &dispatcher{}
	return deps{
		Deps: &Deps{
			Log:     zap.NewNop(),
			Store:   store,
			Fetcher: f,
			Push:    p,
			Clock:   systemClock{},
			Poller: config.PollerCfg{
				SupervisorTick: time.Hour,
				MinInterval:    100 * time.Millisecond,
				CheckInterval:  time.Hour,
				RefillInterval: time.Hour,
			},
			PushCfg:      config.Push{Topic: "com.gkasdorf.memmyapp", Sound: "ping.aiff", Badge: 1, Expiry: time.Hour, Timeout: time.Second},
			FetchTimeout: time.Second,
		},
		store: store,
		fetch: f,
		push:  p,
	}
}

func acct(id int64, origin string, lastCheck time.Time, lastNotified int64) *account.Account {
	return &account.Account{
		ID:             id,
		Origin:         origin,
		Username:       "user",
		AuthToken:      credential(id),
		LastCheckAt:    lastCheck,
		LastNotifiedID: lastNotified,
		Tokens:         []account.Token{{ID: id, AccountID: id, Platform: account.PlatformIOS, Value: "device-" + credential(id)}},
	}
}

func credential(id int64) string {
	return "jwt-" + string(rune('a'+id))
}
