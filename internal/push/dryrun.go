package push

import (
	"context"

	"github.com/NordCoder/Replypush/internal/domain/push"
	"go.uber.org/zap"
)

var _ push.Dispatcher = (*LogDispatcher)(nil)

// LogDispatcher only logs what would have been sent.
type LogDispatcher struct {
	log *zap.Logger
}

func NewLogDispatcher(log *zap.Logger) *LogDispatcher {
	return &LogDispatcher{log: log.With(zap.String("component", "push.dry_run"))}
}

func (d *LogDispatcher) Dispatch(_ context.Context, p push.Payload, tokens []string) ([]push.Result, error) {
	d.log.Info("push (dry run)",
		zap.String("alert", p.Alert),
		zap.String("topic", p.Topic),
		zap.Int64("comment_id", p.Reply.CommentID),
		zap.Int("tokens", len(tokens)),
	)
	out := make([]push.Result, len(tokens))
	for i, t := range tokens {
		out[i] = push.Result{Token: t, Success: true, MessageID: "dry-run"}
	}
	return out, nil
}
