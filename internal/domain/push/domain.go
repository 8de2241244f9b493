package push

import (
	"context"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/reply"
)

type Payload struct {
	Alert  string
	Badge  int
	Sound  string
	Topic  string
	Expiry time.Time
	Reply  reply.Reply
}

type Result struct {
	Token     string
	Success   bool
	MessageID string
	Err       error
}

type Dispatcher interface {
	Dispatch(ctx context.Context, p Payload, tokens []string) ([]Result, error)
}

func Count(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
