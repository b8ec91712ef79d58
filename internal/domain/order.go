package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrOrderNotFound           = errors.New("order not found")
	ErrVersionConflict         = errors.New("order was modified concurrently")
	ErrForbidden               = errors.New("administrator access required")
	ErrValidation              = errors.New("validation failed")
)

// Order represents a bakery pickup order entity
type Order struct {
	ID            int
	Number        string
	CustomerName  string
	CustomerEmail string
	StoreID       int
	Items         []OrderItem
	TotalAmount   float64
	PickupDate    time.Time
	PickupTime    string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Version       int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// OrderItem represents a line in an order
type OrderItem struct {
	ID         int
	OrderID    int
	ProductID  int
	CategoryID *int
	Name       string
	Quantity   int
	Price      float64
}

// NewOrder creates a new order with business rules applied
func NewOrder(customerName, customerEmail string, storeID int, items []OrderItem, pickupDate time.Time, pickupTime string) (*Order, error) {
	order := &Order{
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		StoreID:       storeID,
		Items:         items,
		PickupDate:    pickupDate,
		PickupTime:    pickupTime,
		Status:        StatusNew,
		PaymentStatus: PaymentPending,
		Version:       1,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := order.Validate(); err != nil {
		return nil, err
	}

	order.CalculateTotal()

	return order, nil
}

// Validate applies business validation rules
func (o *Order) Validate() error {
	if len(o.CustomerName) < 1 || len(o.CustomerName) > 100 {
		return fmt.Errorf("%w: customer name must be 1-100 characters", ErrValidation)
	}

	if !strings.Contains(o.CustomerEmail, "@") {
		return fmt.Errorf("%w: customer email is invalid", ErrValidation)
	}

	if o.StoreID < 1 {
		return fmt.Errorf("%w: store is required", ErrValidation)
	}

	if len(o.Items) < 1 || len(o.Items) > 50 {
		return fmt.Errorf("%w: order must have 1-50 items", ErrValidation)
	}

	for _, item := range o.Items {
		if len(item.Name) < 1 || len(item.Name) > 100 {
			return fmt.Errorf("%w: item name must be 1-100 characters", ErrValidation)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item quantity must be at least 1", ErrValidation)
		}
		if item.Price < 0.01 {
			return fmt.Errorf("%w: item price must be at least 0.01", ErrValidation)
		}
	}

	if o.PickupTime != "" {
		if _, err := ParseClock(o.PickupTime); err != nil {
			return fmt.Errorf("%w: pickup time must be HH:MM", ErrValidation)
		}
	}

	return nil
}

// CalculateTotal calculates the total amount of the order
func (o *Order) CalculateTotal() {
	total := 0.0
	for _, item := range o.Items {
		total += item.Price * float64(item.Quantity)
	}
	o.TotalAmount = total
}

// CoupledPaymentStatus derives the payment status a transition forces.
// The second return is false when the payment status is left untouched.
func CoupledPaymentStatus(newStatus OrderStatus, current PaymentStatus) (PaymentStatus, bool) {
	switch {
	case newStatus == StatusCompleted && current != PaymentPaid:
		return PaymentPaid, true
	case newStatus == StatusRefunded && current != PaymentRefunded:
		return PaymentRefunded, true
	}
	return current, false
}

// TransitionTo transitions the order to a new status, applying the coupled
// payment-status rule. Persistence is the caller's concern.
func (o *Order) TransitionTo(newStatus OrderStatus) error {
	if !o.CanTransitionTo(newStatus) {
		return ErrInvalidStatusTransition
	}

	o.Status = newStatus
	o.UpdatedAt = time.Now()

	if coupled, changed := CoupledPaymentStatus(newStatus, o.PaymentStatus); changed {
		o.PaymentStatus = coupled
	}

	if newStatus == StatusCompleted {
		now := time.Now()
		o.CompletedAt = &now
	}

	return nil
}

// CanTransitionTo checks if the order can transition to the new status
func (o *Order) CanTransitionTo(newStatus OrderStatus) bool {
	validTransitions := map[OrderStatus][]OrderStatus{
		StatusNew:            {StatusInProgress, StatusCancelled, StatusRefunded},
		StatusInProgress:     {StatusReadyForPickup, StatusCancelled, StatusRefunded},
		StatusReadyForPickup: {StatusCompleted, StatusCancelled, StatusRefunded},
		StatusCompleted:      {},
		StatusCancelled:      {},
		StatusRefunded:       {},
	}

	allowed := validTransitions[o.Status]
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}
