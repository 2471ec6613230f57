package notification

import (
	"context"
	"fmt"

	"auction-marketplace/internal/auctionerrors"
	model "auction-marketplace/internal/models"
)

// Inbox serves a user's stored notifications
type Inbox struct {
	store Store
}

func NewInbox(store Store) *Inbox {
	return &Inbox{store: store}
}

// ListNotifications returns the user's notifications, newest first
func (i *Inbox) ListNotifications(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("inbox: %w - empty user ID", auctionerrors.ErrInvalidAccount)
	}
	ns, err := i.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("inbox: failed to list notifications for user %s: %w", userID, err)
	}
	return ns, nil
}

// MarkRead flags one of the user's notifications as read
func (i *Inbox) MarkRead(ctx context.Context, userID, notificationID string) error {
	if userID == "" || notificationID == "" {
		return fmt.Errorf("inbox: %w - missing user or notification ID", auctionerrors.ErrInvalidAccount)
	}
	if err := i.store.MarkNotificationRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("inbox: failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}
