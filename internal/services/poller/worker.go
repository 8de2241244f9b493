package poller

import (
	"context"
	"sync"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/account"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"github.com/NordCoder/Replypush/internal/domain/reply"
	"github.com/NordCoder/Replypush/internal/obs"
	pushsvc "github.com/NordCoder/Replypush/internal/push"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Worker polls the accounts of one origin at a fixed interval. A single goroutine owns the
// buffer and runs both the refill and the poll cycle, so they never overlap.
type Worker struct {
	origin   string
	interval time.Duration
	d        *Deps
	log      *zap.Logger

	buf buffer

	cancel     context.CancelFunc
	done       chan struct{}
	deliveries sync.WaitGroup
}

// NewWorker starts a worker. It refills and polls once right away, then on its tickers until Stop.
func NewWorker(ctx context.Context, origin string, interval time.Duration, d *Deps) *Worker {
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		origin:   origin,
		interval: interval,
		d:        d,
		log: d.Log.With(
			zap.String("component", "poller.worker"),
			zap.String("origin", origin),
			zap.Duration("interval", interval),
		),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go w.run(ctx)
	return w
}

func (w *Worker) Origin() string          { return w.origin }
func (w *Worker) Interval() time.Duration { return w.interval }

// Stop cancels all future ticks. A tick already running completes.
func (w *Worker) Stop() { w.cancel() }

// Wait blocks until the loop has exited and every pending push delivery has returned.
func (w *Worker) Wait() {
	<-w.done
	w.deliveries.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer close(w.done)

	refillT := time.NewTicker(w.d.Poller.RefillInterval)
	defer refillT.Stop()
	pollT := time.NewTicker(w.interval)
	defer pollT.Stop()

	w.log.Debug("worker started")
	defer w.log.Debug("worker stopped")

	w.refill(ctx)
	if ctx.Err() != nil {
		return
	}
	w.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-refillT.C:
			if ctx.Err() != nil {
				return
			}
			w.refill(ctx)
		case <-pollT.C:
			if ctx.Err() != nil {
				return
			}
			w.poll(ctx)
		}
	}
}

func (w *Worker) refill(parent context.Context) {
	if w.buf.len() > 0 {
		return
	}
	ctx := context.WithoutCancel(parent)

	threshold := w.d.Clock.Now().Add(-w.d.Poller.CheckInterval)
	due, err := w.d.Store.FindDue(ctx, w.origin, threshold)
	if err != nil {
		mStoreErrors.WithLabelValues(w.origin, "find_due").Inc()
		w.log.Warn("refill failed", zap.Error(err))
		return
	}
	w.buf.load(due)
	mBufferSize.WithLabelValues(w.origin).Set(float64(w.buf.len()))
	if len(due) > 0 {
		w.log.Debug("buffer refilled", zap.Int("accounts", len(due)))
	}
}

func (w *Worker) poll(parent context.Context) {
	a := w.buf.pop()
	if a == nil {
		return
	}
	mBufferSize.WithLabelValues(w.origin).Set(float64(w.buf.len()))

	ctx, span := otel.Tracer("poller.worker").Start(context.WithoutCancel(parent), "poller.poll",
		trace.WithAttributes(
			attribute.String("origin", w.origin),
			attribute.Int64("account.id", a.ID),
		),
	)
	defer span.End()
	log := obs.WithTrace(ctx, w.log).With(zap.Int64("account_id", a.ID), zap.String("username", a.Username))

	a.MarkChecked(w.d.Clock.Now())
	mPolls.WithLabelValues(w.origin).Inc()

	fctx, cancel := ctx, context.CancelFunc(func() {})
	if w.d.FetchTimeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, w.d.FetchTimeout)
	}
	r, err := w.d.Fetcher.LatestReply(fctx, a.Origin, a.AuthToken)
	cancel()
	if err != nil {
		mFetchErrors.WithLabelValues(w.origin).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch")
		log.Warn("fetch replies", zap.Error(err))
		w.save(ctx, a, log)
		return
	}

	if r == nil || r.CommentID == a.LastNotifiedID {
		span.SetAttributes(attribute.Bool("reply.new", false))
		w.save(ctx, a, log)
		return
	}

	span.SetAttributes(attribute.Bool("reply.new", true), attribute.Int64("reply.comment_id", r.CommentID))
	mNewReplies.WithLabelValues(w.origin).Inc()
	log.Info("new reply", zap.Int64("comment_id", r.CommentID), zap.String("sender", r.SenderName))

	sent := w.deliver(ctx, a, *r)
	a.LastNotifiedID = r.CommentID

	if !sent {
		w.save(ctx, a, log)
		return
	}
	if err := w.d.Store.SaveNotified(ctx, a, *r); err != nil {
		mStoreErrors.WithLabelValues(w.origin, "save_notified").Inc()
		span.RecordError(err)
		log.Error("save notified checkpoint", zap.Error(err))
	}
}

func (w *Worker) save(ctx context.Context, a *account.Account, log *zap.Logger) {
	if err := w.d.Store.Save(ctx, a); err != nil {
		mStoreErrors.WithLabelValues(w.origin, "save").Inc()
		log.Warn("save checkpoint", zap.Error(err))
	}
}

// deliver hands the reply to the dispatcher without blocking the loop.
// It reports false when the account has no device to send to.
func (w *Worker) deliver(ctx context.Context, a *account.Account, r reply.Reply) bool {
	tokens := a.TokenValues()
	if len(tokens) == 0 {
		w.log.Debug("no device tokens", zap.Int64("account_id", a.ID))
		return false
	}
	p := pushsvc.NewPayload(w.d.PushCfg, r, w.d.Clock.Now())
	accountID := a.ID

	w.deliveries.Add(1)
	go func() {
		defer w.deliveries.Done()

		dctx, cancel := ctx, context.CancelFunc(func() {})
		if w.d.PushCfg.Timeout > 0 {
			dctx, cancel = context.WithTimeout(ctx, w.d.PushCfg.Timeout)
		}
		defer cancel()

		res, err := w.d.Push.Dispatch(dctx, p, tokens)
		ok, failed := push.Count(res)
		if err != nil && len(res) == 0 {
			failed = len(tokens)
		}
		mPushes.WithLabelValues(w.origin, "ok").Add(float64(ok))
		mPushes.WithLabelValues(w.origin, "failed").Add(float64(failed))

		log := w.log.With(
			zap.Int64("account_id", accountID),
			zap.Int64("comment_id", r.CommentID),
			zap.Int("ok", ok),
			zap.Int("failed", failed),
		)
		if err != nil {
			log.Warn("push dispatch", zap.Error(err))
			return
		}
		log.Info("push dispatched")
	}()
	return true
}
