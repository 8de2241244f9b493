package poller

import "time"

const intervalStep = 100 * time.Millisecond

// AllowedInterval is the poll cadence for an origin with n accounts: 1s for up to 10 accounts,
// 100ms faster per further ten, never below floor.
func AllowedInterval(n int, floor time.Duration) time.Duration {
	steps := 11 - (n+9)/10
	needed := time.Duration(steps) * intervalStep
	if needed < floor {
		return floor
	}
	return needed
}
