package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"auction-marketplace/internal/auctionerrors"
	"auction-marketplace/internal/metrics"
	model "auction-marketplace/internal/models"
	"auction-marketplace/utils"
)

// Notifier accepts notifications for delivery. It never blocks on delivery
// and never reports failure to the caller.
type Notifier interface {
	Notify(ctx context.Context, notifications ...model.Notification)
}

// Sink delivers a batch of addressed notifications
type Sink interface {
	Deliver(ctx context.Context, notifications []model.Notification) error
}

// AdminLister resolves broadcast recipients
type AdminLister interface {
	ListAdmins(ctx context.Context) ([]model.User, error)
}

// Dispatcher delivers notifications on background goroutines
type Dispatcher struct {
	sink    Sink
	admins  AdminLister
	timeout time.Duration
	metrics *metrics.Metrics
	now     func() time.Time
	wg      sync.WaitGroup
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// NewDispatcher creates a dispatcher; timeout bounds each delivery
func NewDispatcher(sink Sink, admins AdminLister, timeout time.Duration, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sink:    sink,
		admins:  admins,
		timeout: timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Notify queues the notifications and returns immediately
func (d *Dispatcher) Notify(ctx context.Context, notifications ...model.Notification) {
	if len(notifications) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				utils.Error("notification: delivery panicked", map[string]any{"panic": fmt.Sprint(r)})
			}
		}()

		if err := d.Deliver(ctx, notifications...); err != nil {
			utils.Error("notification: delivery failed", map[string]any{
				"count": len(notifications),
				"type":  string(notifications[0].Type),
				"error": err.Error(),
			})
			d.metrics.ObserveNotifyFailure(string(notifications[0].Type))
		}
	}()
}

// Deliver expands broadcasts, stamps ids and delivers synchronously
func (d *Dispatcher) Deliver(ctx context.Context, notifications ...model.Notification) error {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	batch, err := d.expand(ctx, notifications)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	if err := d.sink.Deliver(ctx, batch); err != nil {
		return fmt.Errorf("%w: %w", auctionerrors.ErrNotifyFailed, err)
	}
	return nil
}

// Wait blocks until every queued delivery has finished
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) expand(ctx context.Context, notifications []model.Notification) ([]model.Notification, error) {
	var admins []model.User
	out := make([]model.Notification, 0, len(notifications))

	for _, n := range notifications {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = d.now()
		}
		if !n.Broadcast {
			if n.UserID == "" {
				continue
			}
			if n.NotificationID == "" {
				n.NotificationID = utils.GenerateID()
			}
			out = append(out, n)
			continue
		}

		if admins == nil {
			var err error
			admins, err = d.admins.ListAdmins(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: list admins: %w", auctionerrors.ErrNotifyFailed, err)
			}
		}
		for _, admin := range admins {
			copied := n
			copied.Broadcast = false
			copied.UserID = admin.UserID
			copied.NotificationID = utils.GenerateID()
			out = append(out, copied)
		}
	}
	return out, nil
}

// Store is the persistence used by StoreSink and Inbox
type Store interface {
	CreateNotifications(ctx context.Context, notifications ...model.Notification) error
	ListNotifications(ctx context.Context, userID string) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, notificationID string) error
}

// StoreSink persists notifications as user-visible records
type StoreSink struct {
	store Store
}

func NewStoreSink(store Store) *StoreSink {
	return &StoreSink{store: store}
}

func (s *StoreSink) Deliver(ctx context.Context, notifications []model.Notification) error {
	return s.store.CreateNotifications(ctx, notifications...)
}

// MultiSink delivers to every sink and reports all failures
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, notifications []model.Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Deliver(ctx, notifications); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
