package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowedInterval(t *testing.T) {
	floor := 100 * time.Millisecond
	cases := []struct {
		n    int
		want time.Duration
	}{
		{1, time.Second},
		{5, time.Second},
		{10, time.Second},
		{11, 900 * time.Millisecond},
		{25, 800 * time.Millisecond},
		{60, 500 * time.Millisecond},
		{100, 100 * time.Millisecond},
		{101, floor},
		{5000, floor},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, AllowedInterval(c.n, floor), "n=%d", c.n)
	}
}

func TestAllowedInterval_FloorWins(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, AllowedInterval(100, 250*time.Millisecond))
	assert.Equal(t, time.Second, AllowedInterval(1, 250*time.Millisecond))
}

func TestAllowedInterval_NonIncreasing(t *testing.T) {
	prev := AllowedInterval(1, 100*time.Millisecond)
	for n := 2; n <= 300; n++ {
		cur := AllowedInterval(n, 100*time.Millisecond)
		assert.LessOrEqual(t, cur, prev, "n=%d", n)
		prev = cur
	}
}
