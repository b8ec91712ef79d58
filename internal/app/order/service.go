package order

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/config"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type Service struct {
	repo         interfaces.OrderRepository
	availability interfaces.AvailabilityService
	publisher    interfaces.MessagePublisher
	logger       logger.Logger
	batchSize    int
	batchPause   time.Duration
}

func NewService(
	repo interfaces.OrderRepository,
	availability interfaces.AvailabilityService,
	publisher interfaces.MessagePublisher,
	logger logger.Logger,
	cfg config.NotificationsConfig,
) *Service {
	batchSize := cfg.BatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &Service{
		repo:         repo,
		availability: availability,
		publisher:    publisher,
		logger:       logger,
		batchSize:    batchSize,
		batchPause:   time.Duration(cfg.BatchPauseMS) * time.Millisecond,
	}
}

// CreateOrder validates the requested pickup against the store schedule and
// cart restrictions, then persists the order with its initial status event.
func (s *Service) CreateOrder(ctx context.Context, cmd interfaces.CreateOrderCommand) (*domain.Order, error) {
	items := make([]domain.OrderItem, len(cmd.Items))
	for i, item := range cmd.Items {
		items[i] = domain.OrderItem{
			ProductID:  item.ProductID,
			CategoryID: item.CategoryID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			Price:      item.Price,
		}
	}

	pickupDate, err := domain.DateKey(cmd.PickupDate).Date(time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: pickup date must be yyyy-MM-dd", domain.ErrValidation)
	}

	order, err := domain.NewOrder(cmd.CustomerName, cmd.CustomerEmail, cmd.StoreID, items, pickupDate, cmd.PickupTime)
	if err != nil {
		s.logger.Error("validation_failed", "Order validation failed", "", nil, err)
		return nil, err
	}

	if err := s.availability.ValidatePickup(ctx, cmd.StoreID, categoryIDs(items), cmd.PickupDate, cmd.PickupTime); err != nil {
		s.logger.Error("pickup_rejected", "Requested pickup slot is not available", "", map[string]interface{}{
			"store_id":    cmd.StoreID,
			"pickup_date": cmd.PickupDate,
		}, err)
		return nil, err
	}

	number, err := s.repo.GenerateOrderNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to generate order number: %w", err)
	}
	order.Number = number

	if err := s.repo.Create(ctx, order); err != nil {
		s.logger.Error("db_transaction_failed", "Failed to create order", "", nil, err)
		return nil, err
	}
	s.logger.Debug("order_created", "Order created in DB", "", map[string]interface{}{"order_number": order.Number})

	return order, nil
}

func categoryIDs(items []domain.OrderItem) []int {
	seen := make(map[int]struct{})
	var ids []int
	for _, item := range items {
		if item.CategoryID == nil {
			continue
		}
		if _, ok := seen[*item.CategoryID]; ok {
			continue
		}
		seen[*item.CategoryID] = struct{}{}
		ids = append(ids, *item.CategoryID)
	}
	return ids
}

// ApplyStatusTransition moves one order to a new status. The order is
// re-read immediately before mutating so the decision never rests on stale
// state, and the write is guarded by the order's version.
func (s *Service) ApplyStatusTransition(ctx context.Context, cmd interfaces.TransitionCommand) (*domain.Order, error) {
	if !cmd.Actor.Admin {
		return nil, domain.ErrForbidden
	}
	if !cmd.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, cmd.NewStatus)
	}

	order, err := s.repo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := order.TransitionTo(cmd.NewStatus); err != nil {
		return nil, err
	}

	event := &domain.StatusEvent{
		OrderID:   order.ID,
		Status:    cmd.NewStatus,
		CreatedBy: cmd.Actor.ID,
		Note:      cmd.Note,
		CreatedAt: time.Now(),
	}
	if err := s.repo.UpdateStatusWithEvent(ctx, order, event); err != nil {
		s.logger.Error("status_update_failed", "Failed to persist status transition", "", map[string]interface{}{
			"order_id":   order.ID,
			"new_status": cmd.NewStatus,
		}, err)
		return nil, err
	}

	s.notify(ctx, order, oldStatus, cmd.Actor.ID, cmd.Note)

	return order, nil
}

// ApplyBulkStatusTransition updates many orders in one statement, appends one
// event per affected order and dispatches notifications in batches.
func (s *Service) ApplyBulkStatusTransition(ctx context.Context, cmd interfaces.BulkTransitionCommand) (*interfaces.BulkTransitionResult, error) {
	if !cmd.Actor.Admin {
		return nil, domain.ErrForbidden
	}
	if len(cmd.OrderIDs) == 0 {
		return nil, fmt.Errorf("%w: order_ids must not be empty", domain.ErrValidation)
	}
	if cmd.NewStatus == nil && cmd.NewPaymentStatus == nil {
		return nil, fmt.Errorf("%w: either status or payment_status is required", domain.ErrValidation)
	}
	if cmd.NewStatus != nil && !cmd.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrValidation, *cmd.NewStatus)
	}
	if cmd.NewPaymentStatus != nil && !cmd.NewPaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", domain.ErrValidation, *cmd.NewPaymentStatus)
	}

	// The single-order coupling rule carries over when only a status is given:
	// "set paid unless already paid" collapses to an unconditional set in a
	// bulk statement.
	paymentStatus := cmd.NewPaymentStatus
	if paymentStatus == nil && cmd.NewStatus != nil {
		switch *cmd.NewStatus {
		case domain.StatusCompleted:
			paid := domain.PaymentPaid
			paymentStatus = &paid
		case domain.StatusRefunded:
			refunded := domain.PaymentRefunded
			paymentStatus = &refunded
		}
	}

	orders, err := s.repo.BulkUpdateStatus(ctx, cmd.OrderIDs, cmd.NewStatus, paymentStatus)
	if err != nil {
		return nil, err
	}

	if cmd.NewStatus != nil && len(orders) > 0 {
		note := fmt.Sprintf("bulk update (%d orders)", len(orders))
		events := make([]*domain.StatusEvent, len(orders))
		for i, ord := range orders {
			events[i] = &domain.StatusEvent{
				OrderID:   ord.ID,
				Status:    *cmd.NewStatus,
				CreatedBy: cmd.Actor.ID,
				Note:      &note,
				CreatedAt: time.Now(),
			}
		}
		if err := s.repo.InsertStatusEvents(ctx, events); err != nil {
			return nil, err
		}

		s.notifyBulk(ctx, orders, cmd.Actor.ID)
	}

	return &interfaces.BulkTransitionResult{UpdatedCount: len(orders)}, nil
}

func (s *Service) GetStatusHistory(ctx context.Context, orderNumber string) ([]*domain.StatusEvent, error) {
	order, err := s.repo.FindByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.repo.GetStatusHistory(ctx, order.ID)
}

// notify publishes a status update. The transition is already durable at this
// point: a publish failure is logged and never propagated.
func (s *Service) notify(ctx context.Context, order *domain.Order, oldStatus domain.OrderStatus, changedBy string, note *string) {
	msg := interfaces.StatusUpdateMessage{
		OrderID:       order.ID,
		OrderNumber:   order.Number,
		CustomerName:  order.CustomerName,
		CustomerEmail: order.CustomerEmail,
		OldStatus:     oldStatus,
		NewStatus:     order.Status,
		ChangedBy:     changedBy,
		Note:          note,
		Timestamp:     time.Now(),
	}
	if err := s.publisher.PublishStatusUpdate(ctx, msg); err != nil {
		s.logger.Error("notification_publish_failed", "Failed to publish status update", "", map[string]interface{}{
			"order_number": order.Number,
		}, err)
	}
}

// notifyBulk dispatches in fixed-size batches with a pause between them to
// throttle the outbound rate. Failures are isolated per order and never
// affect the reported update count.
func (s *Service) notifyBulk(ctx context.Context, orders []*domain.Order, changedBy string) {
	for start := 0; start < len(orders); start += s.batchSize {
		end := min(start+s.batchSize, len(orders))

		var wg sync.WaitGroup
		for _, ord := range orders[start:end] {
			wg.Add(1)
			go func(ord *domain.Order) {
				defer wg.Done()
				s.notify(ctx, ord, "", changedBy, nil)
			}(ord)
		}
		wg.Wait()

		if end < len(orders) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.batchPause):
			}
		}
	}
}
