package journal

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NordCoder/Replypush/internal/domain/notification"
	kafkax "github.com/NordCoder/Replypush/internal/repository/kafka"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]notification.ReplyNotified
	err  error
}

func (r *memRepo) Create(_ context.Context, n *notification.ReplyNotified) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if r.rows == nil {
		r.rows = map[uuid.UUID]notification.ReplyNotified{}
	}
	if _, ok := r.rows[n.EventID]; ok {
		return false, nil
	}
	r.rows[n.EventID] = *n
	return true, nil
}

func sampleEvent() *notification.ReplyNotified {
	return &notification.ReplyNotified{
		EventID:    uuid.New(),
		AccountID:  9007199254740993,
		Origin:     "lemmy.example",
		Username:   "alice",
		PostID:     10,
		CommentID:  11,
		SenderName: "bob",
		Content:    "hello there",
		At:         time.Date(2024, 5, 1, 10, 0, 0, 123, time.UTC),
	}
}

func encode(t *testing.T, ev *notification.ReplyNotified) []byte {
	t.Helper()
	s, err := kafkax.EncodeReplyNotified(ev)
	require.NoError(t, err)
	b, err := proto.Marshal(s)
	require.NoError(t, err)
	return b
}

func newController(repo *memRepo) *Controller {
	return &Controller{Log: zap.NewNop(), UC: &Handler{Store: repo, Log: zap.NewNop()}}
}

func TestController_StoresEventOnce(t *testing.T) {
	repo := &memRepo{}
	h := newController(repo).handler()
	ev := sampleEvent()
	value := encode(t, ev)

	require.NoError(t, h(context.Background(), nil, value))
	require.NoError(t, h(context.Background(), nil, value))

	require.Len(t, repo.rows, 1)
	got := repo.rows[ev.EventID]
	assert.Equal(t, ev.AccountID, got.AccountID)
	assert.Equal(t, ev.CommentID, got.CommentID)
	assert.Equal(t, ev.Content, got.Content)
	assert.True(t, ev.At.Equal(got.At))
}

func TestController_DropsMalformedEvent(t *testing.T) {
	repo := &memRepo{}
	h := newController(repo).handler()

	s, err := structpb.NewStruct(map[string]any{"event_id": "not-a-uuid"})
	require.NoError(t, err)
	b, err := proto.Marshal(s)
	require.NoError(t, err)

	assert.NoError(t, h(context.Background(), nil, b))
	assert.Empty(t, repo.rows)
}

func TestController_StoreErrorIsRetried(t *testing.T) {
	repo := &memRepo{err: errors.New("db down")}
	h := newController(repo).handler()

	err := h(context.Background(), nil, encode(t, sampleEvent()))
	assert.Error(t, err)
}

func TestController_UndecodableValue(t *testing.T) {
	h := newController(&memRepo{}).handler()
	assert.Error(t, h(context.Background(), nil, []byte{0xff, 0xff, 0xff}))
}
