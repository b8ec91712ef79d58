package interfaces

import (
	"context"
	"time"

	"bakehouse/internal/domain"
)

// StatusUpdateMessage is published for every order status transition. The
// notification subscriber decides per status whether a customer email exists.
type StatusUpdateMessage struct {
	OrderID       int                `json:"order_id"`
	OrderNumber   string             `json:"order_number"`
	CustomerName  string             `json:"customer_name"`
	CustomerEmail string             `json:"customer_email"`
	OldStatus     domain.OrderStatus `json:"old_status,omitempty"`
	NewStatus     domain.OrderStatus `json:"new_status"`
	ChangedBy     string             `json:"changed_by"`
	Note          *string            `json:"note,omitempty"`
	Timestamp     time.Time          `json:"timestamp"`
}

// Messaging contracts (Adapter/RabbitMQ)
type MessagePublisher interface {
	PublishStatusUpdate(ctx context.Context, msg StatusUpdateMessage) error
}

type MessageConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
}

type NotificationHandler func(ctx context.Context, body []byte) error
