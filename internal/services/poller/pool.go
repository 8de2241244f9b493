package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// Pool keeps one worker per origin and re-tunes their intervals from the account counts.
type Pool struct {
	d   *Deps
	log *zap.Logger

	mu       sync.Mutex
	workers  map[string]*Worker
	closed   bool
	draining sync.WaitGroup
}

func NewPool(d *Deps) *Pool {
	return &Pool{
		d:       d,
		log:     d.Log.With(zap.String("component", "poller.pool")),
		workers: make(map[string]*Worker),
	}
}

// Run reconciles immediately and then every supervisor tick. When ctx is done every worker
// is stopped and waited for before Run returns.
func (p *Pool) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.d.Poller.SupervisorTick)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.Shutdown()
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Pool) tick(ctx context.Context) {
	start := time.Now()
	if err := p.Reconcile(ctx); err != nil {
		mReconcileErrors.Inc()
		p.log.Warn("reconcile skipped", zap.Error(err))
	}
	mReconcileDur.Observe(time.Since(start).Seconds())
}

// Reconcile starts a worker for every origin that has none, replaces a worker when the origin
// now needs a strictly shorter interval and stops workers of origins that have no accounts left.
// On a store error nothing changes.
func (p *Pool) Reconcile(ctx context.Context) error {
	ctx, span := otel.Tracer("poller.pool").Start(ctx, "poller.reconcile")
	defer span.End()

	counts, err := p.d.Store.CountByOrigin(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count by origin")
		return fmt.Errorf("count by origin: %w", err)
	}
	span.SetAttributes(attribute.Int("origins", len(counts)))

	// workers outlive the supervisor run that created them
	wctx := context.WithoutCancel(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}

	seen := make(map[string]struct{}, len(counts))
	started := 0
	for _, oc := range counts {
		seen[oc.Origin] = struct{}{}
		allowed := AllowedInterval(oc.Count, p.d.Poller.MinInterval)

		cur, ok := p.workers[oc.Origin]
		if ok && allowed >= cur.Interval() {
			continue
		}
		if ok {
			p.retire(cur)
			mReplacements.WithLabelValues(oc.Origin).Inc()
			p.log.Info("worker replaced",
				zap.String("origin", oc.Origin),
				zap.Int("accounts", oc.Count),
				zap.Duration("old_interval", cur.Interval()),
				zap.Duration("new_interval", allowed),
			)
		} else {
			p.log.Info("worker started",
				zap.String("origin", oc.Origin),
				zap.Int("accounts", oc.Count),
				zap.Duration("interval", allowed),
			)
		}
		p.workers[oc.Origin] = NewWorker(wctx, oc.Origin, allowed, p.d)
		mWorkerInterval.WithLabelValues(oc.Origin).Set(allowed.Seconds())
		started++
	}

	for origin, w := range p.workers {
		if _, ok := seen[origin]; ok {
			continue
		}
		p.retire(w)
		delete(p.workers, origin)
		mWorkerInterval.DeleteLabelValues(origin)
		mBufferSize.DeleteLabelValues(origin)
		p.log.Info("worker removed, origin has no accounts", zap.String("origin", origin))
	}

	span.SetAttributes(attribute.Int("workers.started", started), attribute.Int("workers.total", len(p.workers)))
	return nil
}

// retire stops w and tracks its in-flight tick so Shutdown can wait for it. Caller holds mu.
func (p *Pool) retire(w *Worker) {
	w.Stop()
	p.draining.Add(1)
	go func() {
		defer p.draining.Done()
		w.Wait()
	}()
}

// Assignments returns the current interval of every origin's worker.
func (p *Pool) Assignments() map[string]time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]time.Duration, len(p.workers))
	for origin, w := range p.workers {
		out[origin] = w.Interval()
	}
	return out
}

// Shutdown stops every worker and waits for in-flight ticks and deliveries. Later
// reconciles are no-ops.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	for origin, w := range p.workers {
		p.retire(w)
		delete(p.workers, origin)
		mWorkerInterval.DeleteLabelValues(origin)
		mBufferSize.DeleteLabelValues(origin)
	}
	p.mu.Unlock()

	p.draining.Wait()
	p.log.Info("pool stopped")
}
