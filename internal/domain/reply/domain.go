package reply

import "context"

type Reply struct {
	PostID     int64  `json:"postId"`
	CommentID  int64  `json:"commentId"`
	SenderName string `json:"senderName"`
	Content    string `json:"content"`
}

// Fetcher returns the newest unread reply for a credential, or nil when there is none.
type Fetcher interface {
	LatestReply(ctx context.Context, origin, credential string) (*Reply, error)
}
