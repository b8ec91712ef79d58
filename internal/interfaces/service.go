package interfaces

import (
	"context"

	"bakehouse/internal/domain"
)

// Actor identifies who invoked a mutation. Only administrators may drive
// status transitions.
type Actor struct {
	ID    string
	Admin bool
}

// Commands
type CreateOrderCommand struct {
	CustomerName  string
	CustomerEmail string
	StoreID       int
	PickupDate    string // yyyy-MM-dd
	PickupTime    string // HH:MM, optional
	Items         []CreateOrderItemCommand
}

type CreateOrderItemCommand struct {
	ProductID  int
	CategoryID *int
	Name       string
	Quantity   int
	Price      float64
}

type TransitionCommand struct {
	OrderID   int
	NewStatus domain.OrderStatus
	Note      *string
	Actor     Actor
}

type BulkTransitionCommand struct {
	OrderIDs         []int
	NewStatus        *domain.OrderStatus
	NewPaymentStatus *domain.PaymentStatus
	Actor            Actor
}

type BulkTransitionResult struct {
	UpdatedCount int
}

// AvailabilityResponse describes the pickup options for a store and cart.
// Empty Dates with a non-nil restriction is a normal "nothing works" outcome,
// not an error.
type AvailabilityResponse struct {
	Dates          []domain.DateKey
	FirstAvailable *domain.DateKey
	SelectedDate   *domain.DateKey
	TimeSlots      []string
}

// Service contracts (Business Logic)
type OrderService interface {
	CreateOrder(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error)
	ApplyStatusTransition(ctx context.Context, cmd TransitionCommand) (*domain.Order, error)
	ApplyBulkStatusTransition(ctx context.Context, cmd BulkTransitionCommand) (*BulkTransitionResult, error)
	GetStatusHistory(ctx context.Context, orderNumber string) ([]*domain.StatusEvent, error)
}

type AvailabilityService interface {
	GetAvailability(ctx context.Context, storeID int, categoryIDs []int, date *string) (*AvailabilityResponse, error)
	ValidatePickup(ctx context.Context, storeID int, categoryIDs []int, date, timeLabel string) error
}
