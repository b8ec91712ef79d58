package domain

import "time"

type OrderStatus string

const (
	StatusNew            OrderStatus = "new"
	StatusInProgress     OrderStatus = "in_progress"
	StatusReadyForPickup OrderStatus = "ready_for_pickup"
	StatusCompleted      OrderStatus = "completed"
	StatusCancelled      OrderStatus = "cancelled"
	StatusRefunded       OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusReadyForPickup,
		StatusCompleted, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Terminal reports whether no further transition is defined from s.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRefunded
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentRefunded:
		return true
	}
	return false
}

// NotificationKind selects the customer message sent for a status change.
type NotificationKind string

const (
	NotifyOrderConfirmation NotificationKind = "order_confirmation"
	NotifyOrderReady        NotificationKind = "order_ready"
	NotifyThankYou          NotificationKind = "thank_you"
)

// notificationKinds is the explicit status-to-message table. Statuses without
// an entry (new, cancelled, refunded) deliberately send nothing.
var notificationKinds = map[OrderStatus]NotificationKind{
	StatusInProgress:     NotifyOrderConfirmation,
	StatusReadyForPickup: NotifyOrderReady,
	StatusCompleted:      NotifyThankYou,
}

// NotificationKindFor returns the message kind for a status, if one is mapped.
func NotificationKindFor(status OrderStatus) (NotificationKind, bool) {
	kind, ok := notificationKinds[status]
	return kind, ok
}

// StatusEvent is one immutable entry of an order's audit history. Events are
// append-only and never edited or deleted.
type StatusEvent struct {
	ID        int
	OrderID   int
	Status    OrderStatus
	CreatedBy string
	Note      *string
	CreatedAt time.Time
}
