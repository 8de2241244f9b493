package poller

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(t *testing.T) (*Pool, *memStore) {
	t.Helper()
	store := newMemStore()
	d := newDeps(t, store)
	p := NewPool(d.Deps)
	t.Cleanup(p.Shutdown)
	return p, store
}

func TestPool_StartsOneWorkerPerOrigin(t *testing.T) {
	p, store := newTestPool(t)
	store.setCounts(
		account.OriginCount{Origin: "big.example", Count: 60},
		account.OriginCount{Origin: "small.example", Count: 5},
	)

	require.NoError(t, p.Reconcile(context.Background()))
	assert.Equal(t, map[string]time.Duration{
		"big.example":   500 * time.Millisecond,
		"small.example": time.Second,
	}, p.Assignments())
}

func TestPool_ReplacesOnlyWithFasterWorker(t *testing.T) {
	p, store := newTestPool(t)
	ctx := context.Background()

	store.setCounts(account.OriginCount{Origin: "a.example", Count: 5})
	require.NoError(t, p.Reconcile(ctx))
	first := p.workers["a.example"]
	require.NotNil(t, first)

	// same interval: untouched
	store.setCounts(account.OriginCount{Origin: "a.example", Count: 9})
	require.NoError(t, p.Reconcile(ctx))
	assert.Same(t, first, p.workers["a.example"])

	// faster: replaced, old one stopped
	store.setCounts(account.OriginCount{Origin: "a.example", Count: 25})
	require.NoError(t, p.Reconcile(ctx))
	second := p.workers["a.example"]
	assert.NotSame(t, first, second)
	assert.Equal(t, 800*time.Millisecond, second.Interval())
	waitDone(t, first)

	// slower: kept
	store.setCounts(account.OriginCount{Origin: "a.example", Count: 1})
	require.NoError(t, p.Reconcile(ctx))
	assert.Same(t, second, p.workers["a.example"])
	assert.Equal(t, 800*time.Millisecond, p.Assignments()["a.example"])
}

func TestPool_TwentyFiveAccountsScenario(t *testing.T) {
	p, store := newTestPool(t)
	ctx := context.Background()

	store.setCounts(
		account.OriginCount{Origin: "grown.example", Count: 5},
		account.OriginCount{Origin: "shrunk.example", Count: 60},
	)
	require.NoError(t, p.Reconcile(ctx))
	require.Equal(t, time.Second, p.Assignments()["grown.example"])
	require.Equal(t, 500*time.Millisecond, p.Assignments()["shrunk.example"])
	kept := p.workers["shrunk.example"]

	store.setCounts(
		account.OriginCount{Origin: "grown.example", Count: 25},
		account.OriginCount{Origin: "shrunk.example", Count: 25},
	)
	require.NoError(t, p.Reconcile(ctx))

	assert.Equal(t, 800*time.Millisecond, p.Assignments()["grown.example"])
	assert.Equal(t, 500*time.Millisecond, p.Assignments()["shrunk.example"])
	assert.Same(t, kept, p.workers["shrunk.example"])
}

func TestPool_StopsWorkersOfVanishedOrigins(t *testing.T) {
	p, store := newTestPool(t)
	ctx := context.Background()

	store.setCounts(
		account.OriginCount{Origin: "a.example", Count: 3},
		account.OriginCount{Origin: "b.example", Count: 3},
	)
	require.NoError(t, p.Reconcile(ctx))
	gone := p.workers["b.example"]

	store.setCounts(account.OriginCount{Origin: "a.example", Count: 3})
	require.NoError(t, p.Reconcile(ctx))
	assert.NotContains(t, p.Assignments(), "b.example")
	waitDone(t, gone)

	store.setCounts()
	require.NoError(t, p.Reconcile(ctx))
	assert.Empty(t, p.Assignments())
}

func TestPool_StoreFailureSkipsRun(t *testing.T) {
	p, store := newTestPool(t)
	ctx := context.Background()

	store.setCounts(account.OriginCount{Origin: "a.example", Count: 3})
	require.NoError(t, p.Reconcile(ctx))
	before := p.workers["a.example"]

	store.failCounts(errors.New("connection reset"))
	require.Error(t, p.Reconcile(ctx))
	assert.Same(t, before, p.workers["a.example"])
}

func TestPool_RunStopsWorkersOnCancel(t *testing.T) {
	p, store := newTestPool(t)
	store.setCounts(account.OriginCount{Origin: "a.example", Count: 3})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	require.Eventually(t, func() bool { return len(p.Assignments()) == 1 }, time.Second, 5*time.Millisecond)
	p.mu.Lock()
	w := p.workers["a.example"]
	p.mu.Unlock()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	waitDone(t, w)
	assert.Empty(t, p.Assignments())

	// no workers come back once the pool is shut down
	require.NoError(t, p.Reconcile(context.Background()))
	assert.Empty(t, p.Assignments())
}

func waitDone(t *testing.T, w *Worker) {
	t.Helper()
	select {
	case <-w.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("worker %s still running", w.Origin())
	}
}
