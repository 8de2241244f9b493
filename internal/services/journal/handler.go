// Package journal stores every pushed reply, as published by the poller's outbox, in the notifications table.
package journal

import (
	"context"
	"fmt"

	"github.com/NordCoder/Replypush/internal/domain/notification"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var mEvents = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "journal_events_total", Help: "reply_notified events by outcome",
}, []string{"result"})

type Handler struct {
	Store notification.Repo
	Log   *zap.Logger
}

// HandleReplyNotified is idempotent: a redelivered event is acknowledged without a second row.
func (h *Handler) HandleReplyNotified(ctx context.Context, ev *notification.ReplyNotified) error {
	created, err := h.Store.Create(ctx, ev)
	if err != nil {
		return fmt.Errorf("store reply %d: %w", ev.CommentID, err)
	}
	if !created {
		mEvents.WithLabelValues("duplicate").Inc()
		h.Log.Debug("reply already journaled", zap.String("event_id", ev.EventID.String()))
		return nil
	}
	mEvents.WithLabelValues("stored").Inc()
	h.Log.Info("reply journaled",
		zap.String("event_id", ev.EventID.String()),
		zap.String("origin", ev.Origin),
		zap.Int64("account_id", ev.AccountID),
		zap.Int64("comment_id", ev.CommentID),
	)
	return nil
}
