package quorum

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

type UserSettings struct {
	SendDailyDigest bool `json:"send_daily_digest,omitempty"`
}

func (us UserSettings) Value() (driver.Value, error) {
	return json.Marshal(us)
}

func (us *UserSettings) Scan(value interface{}) error {
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("can't decode user settings")
	}

	return json.Unmarshal(b, &us)
}

// A User owns questions and answers. Reputation is derived from the votes
// on that content; nothing else may write it.
type User struct {
	ID          int64        `db:"id"`
	Name        string       `db:"name"`
	Email       string       `db:"email"`
	Reputation  int64        `db:"reputation"`
	Settings    UserSettings `db:"settings"`
	CreatedAt   time.Time    `db:"created_at"`
	LastLoginAt time.Time    `db:"last_login_at"`
}

// UserStats aggregates a user's public activity for their profile.
type UserStats struct {
	Questions       int64 `db:"questions" json:"questions"`
	Answers         int64 `db:"answers" json:"answers"`
	Reputation      int64 `db:"reputation" json:"reputation"`
	AcceptedAnswers int64 `db:"accepted_answers" json:"accepted_answers"`
}
