package push

import (
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	config "github.com/NordCoder/Replypush/internal/config/poller"
	"github.com/NordCoder/Replypush/internal/domain/push"
	"github.com/NordCoder/Replypush/internal/domain/reply"
)

// maxContentBytes bounds the comment text carried in a push. The text appears in the
// alert and in the data block, and JSON escaping can grow it sixfold, so this keeps
// the whole message under the 4 KB APNs and FCM limit.
const (
	maxContentBytes = 240
	maxSenderBytes  = 64
)

// NewPayload builds the notification shown for a reply.
func NewPayload(cfg config.Push, r reply.Reply, now time.Time) push.Payload {
	r.Content = clip(r.Content, maxContentBytes)
	r.SenderName = clip(r.SenderName, maxSenderBytes)
	return push.Payload{
		Alert:  fmt.Sprintf("%s said: %s", r.SenderName, r.Content),
		Badge:  cfg.Badge,
		Sound:  cfg.Sound,
		Topic:  cfg.Topic,
		Expiry: now.Add(cfg.Expiry),
		Reply:  r,
	}
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}

func replyData(r reply.Reply) map[string]string {
	return map[string]string{
		"postId":     strconv.FormatInt(r.PostID, 10),
		"commentId":  strconv.FormatInt(r.CommentID, 10),
		"senderName": r.SenderName,
		"content":    r.Content,
	}
}
