package quorum

import (
	"database/sql"
	"time"
)

// A NotificationType tags what kind of event a notification records.
type NotificationType string

const (
	// NotificationAnswer is sent to a question's author when someone answers.
	NotificationAnswer NotificationType = "answer"
	// NotificationAccept is sent to an answer's author when it gets accepted.
	NotificationAccept NotificationType = "accept"
)

// A Notification is an append-only record of a state transition relevant to
// a user. IsRead is the only mutable field and only ever flips false to
// true.
type Notification struct {
	ID        int64            `db:"id" json:"id"`
	UserID    int64            `db:"user_id" json:"user_id"`
	Type      NotificationType `db:"type" json:"type"`
	Title     string           `db:"title" json:"title"`
	Message   string           `db:"message" json:"message"`
	RelatedID sql.NullInt64    `db:"related_id" json:"related_id"`
	IsRead    bool             `db:"is_read" json:"is_read"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

func NewNotification(userID int64, typ NotificationType, title string, message string, relatedID int64) *Notification {
	return &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: sql.NullInt64{Int64: relatedID, Valid: relatedID != 0},
		CreatedAt: NowFunc(),
	}
}
