package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("broker not available")
		}
		return nil
	}, Policy{Name: "test_success", Attempts: 5})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	exhausted := false
	err := Do(context.Background(), func() error {
		calls++
		return Permanent(errors.New("bad payload"))
	}, Policy{Name: "test_permanent", Attempts: 5, OnExhaust: func(error) { exhausted = true }})

	require.ErrorIs(t, err, ErrPermanent)
	assert.Equal(t, 1, calls)
	assert.True(t, exhausted)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func() error {
		calls++
		return errors.New("timeout")
	}, Policy{Name: "test_exhaust", Attempts: 3, Backoff: ExpoJitter{Base: time.Millisecond}})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Do(ctx, func() error {
		calls++
		cancel()
		return errors.New("down")
	}, Policy{Name: "test_cancel", Attempts: 5, Backoff: ExpoJitter{Base: time.Hour}})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestPermanent_Nil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
}

func TestExpoJitter_Caps(t *testing.T) {
	b := ExpoJitter{Base: 100 * time.Millisecond, Max: time.Second}
	assert.Equal(t, 100*time.Millisecond, b.Next(0))
	assert.Equal(t, 400*time.Millisecond, b.Next(2))
	assert.Equal(t, time.Second, b.Next(10))

	j := ExpoJitter{Base: 100 * time.Millisecond, Jitter: 0.2}
	for i := 0; i < 50; i++ {
		d := j.Next(0)
		assert.GreaterOrEqual(t, d, 80*time.Millisecond)
		assert.LessOrEqual(t, d, 120*time.Millisecond)
	}
}
