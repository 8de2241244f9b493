package journal

import (
	"context"
	"errors"

	kafkax "github.com/NordCoder/Replypush/internal/repository/kafka"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.handler())
}

func (c *Controller) handler() kafkax.Handler {
	return kafkax.ProtoHandler(
		func() *structpb.Struct { return &structpb.Struct{} },
		func(ctx context.Context, _ []byte, msg *structpb.Struct) error {
			ev, err := kafkax.DecodeReplyNotified(msg)
			if errors.Is(err, kafkax.ErrBadEvent) {
				mEvents.WithLabelValues("malformed").Inc()
				c.Log.Warn("reply-notified: dropping malformed event", zap.Error(err))
				return nil
			}
			if err != nil {
				return err
			}
			return c.UC.HandleReplyNotified(ctx, ev)
		},
	)
}
