package quorum

import (
	"github.com/rs/zerolog"
)

// notificationsPageSize caps how many notifications a pull returns.
const notificationsPageSize = 20

// A NotificationService maintains each user's append-only notification log.
// Enqueueing rides the transaction of the state transition that caused the
// notification; reading and marking as read commit independently.
type NotificationService struct {
	store  Store
	logger zerolog.Logger
}

func NewNotificationService(store Store, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		store:  store,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Enqueue appends a notification inside the caller's transaction. A failure
// propagates to the caller, rolling back the transition along with the
// notification; an event without its notification is not a state we commit.
func (s *NotificationService) Enqueue(tx Tx, userID int64, typ NotificationType, title string, message string, relatedID int64) error {
	return tx.InsertNotification(NewNotification(userID, typ, title, message, relatedID))
}

// ListRecent returns up to limit notifications for the user, newest first.
// Limits outside of 1..20 are clamped to 20.
func (s *NotificationService) ListRecent(userID int64, limit int) ([]*Notification, error) {
	if limit <= 0 || limit > notificationsPageSize {
		limit = notificationsPageSize
	}

	return s.store.ListNotifications(userID, limit)
}

// UnreadCount returns how many of the user's notifications are unread.
func (s *NotificationService) UnreadCount(userID int64) (int64, error) {
	return s.store.CountUnreadNotifications(userID)
}

// MarkAllRead flips all of the user's unread notifications to read and
// returns how many rows changed. Calling it again right away changes zero
// rows.
func (s *NotificationService) MarkAllRead(userID int64) (int64, error) {
	n, err := s.store.MarkNotificationsRead(userID)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Int64("user_id", userID).Int64("count", n).Msg("Marked notifications read")
	return n, nil
}
