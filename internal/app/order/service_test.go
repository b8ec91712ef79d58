package order_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/app/order"
	"bakehouse/internal/config"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type fakeOrderRepo struct {
	orders       map[int]*domain.Order
	events       []*domain.StatusEvent
	created      []*domain.Order
	bulkErr      error
	updateErr    error
	updateCalled int
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[int]*domain.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (f *fakeOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	o.ID = len(f.created) + 1
	f.created = append(f.created, o)
	f.events = append(f.events, &domain.StatusEvent{OrderID: o.ID, Status: o.Status, CreatedBy: "order-service"})
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderRepo) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	for _, o := range f.orders {
		if o.Number == number {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (f *fakeOrderRepo) GenerateOrderNumber(ctx context.Context) (string, error) {
	return fmt.Sprintf("BAKE_20250601_%03d", len(f.created)+1), nil
}

func (f *fakeOrderRepo) UpdateStatusWithEvent(ctx context.Context, o *domain.Order, event *domain.StatusEvent) error {
	f.updateCalled++
	if f.updateErr != nil {
		return f.updateErr
	}
	f.orders[o.ID] = o
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOrderRepo) BulkUpdateStatus(ctx context.Context, ids []int, status *domain.OrderStatus, paymentStatus *domain.PaymentStatus) ([]*domain.Order, error) {
	if f.bulkErr != nil {
		return nil, f.bulkErr
	}
	var updated []*domain.Order
	for _, id := range ids {
		o, ok := f.orders[id]
		if !ok {
			continue
		}
		if status != nil {
			o.Status = *status
		}
		if paymentStatus != nil {
			o.PaymentStatus = *paymentStatus
		}
		updated = append(updated, o)
	}
	return updated, nil
}

func (f *fakeOrderRepo) InsertStatusEvents(ctx context.Context, events []*domain.StatusEvent) error {
	f.events = append(f.events, events...)
	return nil
}

func (f *fakeOrderRepo) GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusEvent, error) {
	var out []*domain.StatusEvent
	for _, e := range f.events {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

type fakePublisher struct {
	mu         sync.Mutex
	messages   []interfaces.StatusUpdateMessage
	err        error
	failNumber string
}

func (f *fakePublisher) PublishStatusUpdate(ctx context.Context, msg interfaces.StatusUpdateMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.failNumber != "" && msg.OrderNumber == f.failNumber {
		return errors.New("broker rejected publish")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakePublisher) published() []interfaces.StatusUpdateMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interfaces.StatusUpdateMessage(nil), f.messages...)
}

type fakeAvailability struct {
	err error
}

func (f *fakeAvailability) GetAvailability(ctx context.Context, storeID int, categoryIDs []int, date *string) (*interfaces.AvailabilityResponse, error) {
	return &interfaces.AvailabilityResponse{}, nil
}

func (f *fakeAvailability) ValidatePickup(ctx context.Context, storeID int, categoryIDs []int, date, timeLabel string) error {
	return f.err
}

var admin = interfaces.Actor{ID: "alex", Admin: true}

func newTestService(repo *fakeOrderRepo, pub *fakePublisher, avail *fakeAvailability) *order.Service {
	return order.NewService(repo, avail, pub, logger.New("test"),
		config.NotificationsConfig{BatchSize: 5, BatchPauseMS: 1})
}

func pendingOrder(id int, status domain.OrderStatus) *domain.Order {
	return &domain.Order{
		ID:            id,
		Number:        fmt.Sprintf("BAKE_20250601_%03d", id),
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		Status:        status,
		PaymentStatus: domain.PaymentPending,
		Version:       1,
	}
}

func TestApplyStatusTransitionCompletedCouplesPayment(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusReadyForPickup))
	pub := &fakePublisher{}
	svc := newTestService(repo, pub, &fakeAvailability{})

	updated, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusCompleted,
		Actor:     admin,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCompleted, updated.Status)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)

	require.Len(t, repo.events, 1)
	assert.Equal(t, domain.StatusCompleted, repo.events[0].Status)
	assert.Equal(t, "alex", repo.events[0].CreatedBy)

	msgs := pub.published()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.StatusCompleted, msgs[0].NewStatus)
	assert.Equal(t, domain.StatusReadyForPickup, msgs[0].OldStatus)
}

func TestApplyStatusTransitionAlreadyPaidStillAppendsEvent(t *testing.T) {
	o := pendingOrder(1, domain.StatusReadyForPickup)
	o.PaymentStatus = domain.PaymentPaid
	repo := newFakeOrderRepo(o)
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	updated, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusCompleted,
		Actor:     admin,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
	assert.Len(t, repo.events, 1)
}

func TestApplyStatusTransitionRequiresAdmin(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusNew))
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	_, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusInProgress,
		Actor:     interfaces.Actor{ID: "visitor"},
	})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, repo.updateCalled)
}

func TestApplyStatusTransitionNotFound(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	_, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   99,
		NewStatus: domain.StatusInProgress,
		Actor:     admin,
	})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestApplyStatusTransitionInvalidMove(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusNew))
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	_, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusCompleted,
		Actor:     admin,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
	assert.Zero(t, repo.updateCalled)
}

func TestApplyStatusTransitionVersionConflict(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusNew))
	repo.updateErr = domain.ErrVersionConflict
	pub := &fakePublisher{}
	svc := newTestService(repo, pub, &fakeAvailability{})

	_, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusInProgress,
		Actor:     admin,
	})
	assert.ErrorIs(t, err, domain.ErrVersionConflict)

	// A concurrent write nothing was persisted for must not notify anyone.
	assert.Empty(t, pub.published())
	assert.Empty(t, repo.events)
}

func TestApplyStatusTransitionPublishFailureDoesNotFail(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusNew))
	pub := &fakePublisher{err: errors.New("broker down")}
	svc := newTestService(repo, pub, &fakeAvailability{})

	updated, err := svc.ApplyStatusTransition(context.Background(), interfaces.TransitionCommand{
		OrderID:   1,
		NewStatus: domain.StatusInProgress,
		Actor:     admin,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, updated.Status)
	// The transition is durable even though the notification never went out.
	assert.Equal(t, 1, repo.updateCalled)
	assert.Len(t, repo.events, 1)
}

func TestApplyBulkStatusTransitionValidation(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	status := domain.StatusCompleted
	_, err := svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs:  nil,
		NewStatus: &status,
		Actor:     admin,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs: []int{1, 2},
		Actor:    admin,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, repo.events)
}

func TestApplyBulkStatusTransitionCouplesPayment(t *testing.T) {
	repo := newFakeOrderRepo(
		pendingOrder(1, domain.StatusReadyForPickup),
		pendingOrder(2, domain.StatusReadyForPickup),
	)
	pub := &fakePublisher{}
	svc := newTestService(repo, pub, &fakeAvailability{})

	status := domain.StatusCompleted
	result, err := svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs:  []int{1, 2},
		NewStatus: &status,
		Actor:     admin,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.UpdatedCount)

	for _, id := range []int{1, 2} {
		assert.Equal(t, domain.StatusCompleted, repo.orders[id].Status)
		assert.Equal(t, domain.PaymentPaid, repo.orders[id].PaymentStatus)
	}

	require.Len(t, repo.events, 2)
	for _, event := range repo.events {
		require.NotNil(t, event.Note)
		assert.Equal(t, "bulk update (2 orders)", *event.Note)
	}

	assert.Len(t, pub.published(), 2)
}

func TestApplyBulkStatusTransitionPaymentOnly(t *testing.T) {
	repo := newFakeOrderRepo(pendingOrder(1, domain.StatusNew))
	pub := &fakePublisher{}
	svc := newTestService(repo, pub, &fakeAvailability{})

	paid := domain.PaymentPaid
	result, err := svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs:         []int{1},
		NewPaymentStatus: &paid,
		Actor:            admin,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedCount)

	// A payment-only bulk update records no status events and sends nothing.
	assert.Empty(t, repo.events)
	assert.Empty(t, pub.published())
}

func TestApplyBulkStatusTransitionBatchesNotifications(t *testing.T) {
	orders := make([]*domain.Order, 12)
	ids := make([]int, 12)
	for i := range orders {
		orders[i] = pendingOrder(i+1, domain.StatusNew)
		ids[i] = i + 1
	}
	repo := newFakeOrderRepo(orders...)
	pub := &fakePublisher{}
	svc := newTestService(repo, pub, &fakeAvailability{})

	status := domain.StatusInProgress
	result, err := svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs:  ids,
		NewStatus: &status,
		Actor:     admin,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, result.UpdatedCount)
	assert.Len(t, pub.published(), 12)
	assert.Len(t, repo.events, 12)
}

func TestApplyBulkStatusTransitionNotifyFailureIsIsolated(t *testing.T) {
	repo := newFakeOrderRepo(
		pendingOrder(1, domain.StatusInProgress),
		pendingOrder(2, domain.StatusInProgress),
		pendingOrder(3, domain.StatusInProgress),
	)
	pub := &fakePublisher{failNumber: "BAKE_20250601_002"}
	svc := newTestService(repo, pub, &fakeAvailability{})

	status := domain.StatusReadyForPickup
	result, err := svc.ApplyBulkStatusTransition(context.Background(), interfaces.BulkTransitionCommand{
		OrderIDs:  []int{1, 2, 3},
		NewStatus: &status,
		Actor:     admin,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.UpdatedCount)
	assert.Len(t, repo.events, 3)

	// One rejected publish must not swallow the other orders' notifications.
	msgs := pub.published()
	require.Len(t, msgs, 2)
	for _, msg := range msgs {
		assert.NotEqual(t, "BAKE_20250601_002", msg.OrderNumber)
	}
}

func TestCreateOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := newTestService(repo, &fakePublisher{}, &fakeAvailability{})

	cmd := interfaces.CreateOrderCommand{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		StoreID:       1,
		PickupDate:    "2025-06-02",
		PickupTime:    "09:30",
		Items: []interfaces.CreateOrderItemCommand{
			{ProductID: 1, Name: "Sourdough loaf", Quantity: 2, Price: 6.50},
		},
	}

	created, err := svc.CreateOrder(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusNew, created.Status)
	assert.NotEmpty(t, created.Number)
	require.Len(t, repo.created, 1)
}

func TestCreateOrderRejectsUnavailablePickup(t *testing.T) {
	repo := newFakeOrderRepo()
	avail := &fakeAvailability{err: fmt.Errorf("%w: pickup is not available on 2025-06-01", domain.ErrValidation)}
	svc := newTestService(repo, &fakePublisher{}, avail)

	cmd := interfaces.CreateOrderCommand{
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		StoreID:       1,
		PickupDate:    "2025-06-01",
		PickupTime:    "09:30",
		Items: []interfaces.CreateOrderItemCommand{
			{ProductID: 1, Name: "Sourdough loaf", Quantity: 1, Price: 6.50},
		},
	}

	_, err := svc.CreateOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, repo.created)
}
