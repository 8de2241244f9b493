package account

import "time"

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) Valid() bool {
	return p == PlatformIOS || p == PlatformAndroid
}

// Account is one monitored credential on a remote origin.
// LastNotifiedID is zero until the first reply has been pushed.
type Account struct {
	ID             int64     `json:"id"`
	Origin         string    `json:"origin"`
	Username       string    `json:"username"`
	AuthToken      string    `json:"-"`
	LastCheckAt    time.Time `json:"last_check_at"`
	LastNotifiedID int64     `json:"last_notified_id"`
	Tokens         []Token   `json:"tokens"`
}

type Token struct {
	ID        int64    `json:"id"`
	AccountID int64    `json:"account_id"`
	Platform  Platform `json:"platform"`
	Value     string   `json:"-"`
}

// MarkChecked moves LastCheckAt forward; it never rewinds it.
func (a *Account) MarkChecked(at time.Time) {
	if at.After(a.LastCheckAt) {
		a.LastCheckAt = at
	}
}

func (a *Account) TokenValues() []string {
	out := make([]string, 0, len(a.Tokens))
	for _, t := range a.Tokens {
		if t.Value != "" {
			out = append(out, t.Value)
		}
	}
	return out
}

type OriginCount struct {
	Origin string
	Count  int
}
