package interfaces

import (
	"context"

	"bakehouse/internal/domain"
)

// Persistence contracts (Adapter/Postgres)
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int) (*domain.Order, error)
	FindByNumber(ctx context.Context, number string) (*domain.Order, error)
	GenerateOrderNumber(ctx context.Context) (string, error)
	// UpdateStatusWithEvent persists the order's status and payment fields and
	// appends the event in one transaction, guarded by the order's version.
	UpdateStatusWithEvent(ctx context.Context, order *domain.Order, event *domain.StatusEvent) error
	// BulkUpdateStatus updates all matching orders in a single statement and
	// returns the affected rows.
	BulkUpdateStatus(ctx context.Context, ids []int, status *domain.OrderStatus, paymentStatus *domain.PaymentStatus) ([]*domain.Order, error)
	InsertStatusEvents(ctx context.Context, events []*domain.StatusEvent) error
	GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusEvent, error)
}

type StoreRepository interface {
	// GetSchedule returns nil without error when the store has no recorded
	// hours; callers must treat a nil schedule as "no valid pickup window".
	GetSchedule(ctx context.Context, storeID int) (*domain.StoreSchedule, error)
}

type CatalogRepository interface {
	GetCategories(ctx context.Context, ids []int) ([]*domain.Category, error)
}
