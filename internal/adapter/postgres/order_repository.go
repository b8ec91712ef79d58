package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type orderRepository struct {
	db DB
}

func NewOrderRepository(db DB) interfaces.OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO orders (number, customer_name, customer_email, store_id, total_amount,
		                    pickup_date, pickup_time, order_status, payment_status, version,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		order.Number, order.CustomerName, order.CustomerEmail, order.StoreID, order.TotalAmount,
		order.PickupDate, order.PickupTime, order.Status, order.PaymentStatus, order.Version,
		order.CreatedAt, order.UpdatedAt,
	).Scan(&order.ID)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		itemQuery := `
			INSERT INTO order_items (order_id, product_id, category_id, name, quantity, price, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id
		`
		err = tx.QueryRow(ctx, itemQuery,
			order.ID, order.Items[i].ProductID, order.Items[i].CategoryID,
			order.Items[i].Name, order.Items[i].Quantity, order.Items[i].Price, time.Now(),
		).Scan(&order.Items[i].ID)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
		order.Items[i].OrderID = order.ID
	}

	// Initial status event is written in the same transaction as the order.
	eventQuery := `
		INSERT INTO order_status_events (order_id, status, created_by, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err = tx.Exec(ctx, eventQuery, order.ID, order.Status, "order-service", time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}

	return tx.Commit(ctx)
}

const orderColumns = `
	id, number, customer_name, customer_email, store_id, total_amount,
	pickup_date, pickup_time, order_status, payment_status, version,
	created_at, updated_at, completed_at
`

func (r *orderRepository) FindByID(ctx context.Context, id int) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.findOne(ctx, query, id)
}

func (r *orderRepository) FindByNumber(ctx context.Context, number string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE number = $1`
	return r.findOne(ctx, query, number)
}

func (r *orderRepository) findOne(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var order domain.Order
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&order.ID, &order.Number, &order.CustomerName, &order.CustomerEmail, &order.StoreID,
		&order.TotalAmount, &order.PickupDate, &order.PickupTime, &order.Status,
		&order.PaymentStatus, &order.Version, &order.CreatedAt, &order.UpdatedAt, &order.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, category_id, name, quantity, price
		FROM order_items WHERE order_id = $1
	`
	rows, err := r.db.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.CategoryID,
			&item.Name, &item.Quantity, &item.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	return &order, nil
}

// UpdateStatusWithEvent persists the status and payment fields together with
// the audit event in one transaction. The write is optimistic: it matches the
// version the caller read, and a miss reports a conflict instead of silently
// overwriting a concurrent transition.
func (r *orderRepository) UpdateStatusWithEvent(ctx context.Context, order *domain.Order, event *domain.StatusEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE orders
		SET order_status = $1, payment_status = $2, version = version + 1,
		    updated_at = $3, completed_at = $4
		WHERE id = $5 AND version = $6
	`
	tag, err := tx.Exec(ctx, query,
		order.Status, order.PaymentStatus, order.UpdatedAt, order.CompletedAt,
		order.ID, order.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}

	eventQuery := `
		INSERT INTO order_status_events (order_id, status, created_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = tx.QueryRow(ctx, eventQuery,
		event.OrderID, event.Status, event.CreatedBy, event.Note, event.CreatedAt,
	).Scan(&event.ID)
	if err != nil {
		return fmt.Errorf("failed to insert status event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	order.Version++
	return nil
}

// BulkUpdateStatus updates every matching order in one statement and returns
// the affected rows, so callers can write events and notify per order.
func (r *orderRepository) BulkUpdateStatus(ctx context.Context, ids []int, status *domain.OrderStatus, paymentStatus *domain.PaymentStatus) ([]*domain.Order, error) {
	set := "updated_at = now(), version = version + 1"
	args := []any{ids}
	arg := 2

	if status != nil {
		set += fmt.Sprintf(", order_status = $%d", arg)
		args = append(args, *status)
		arg++
		if *status == domain.StatusCompleted {
			set += ", completed_at = now()"
		}
	}
	if paymentStatus != nil {
		set += fmt.Sprintf(", payment_status = $%d", arg)
		args = append(args, *paymentStatus)
		arg++
	}

	query := fmt.Sprintf(`
		UPDATE orders SET %s
		WHERE id = ANY($1)
		RETURNING id, number, customer_name, customer_email, order_status, payment_status
	`, set)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to bulk update orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.Number, &order.CustomerName, &order.CustomerEmail,
			&order.Status, &order.PaymentStatus); err != nil {
			return nil, fmt.Errorf("failed to scan updated order: %w", err)
		}
		orders = append(orders, &order)
	}

	return orders, nil
}

func (r *orderRepository) InsertStatusEvents(ctx context.Context, events []*domain.StatusEvent) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO order_status_events (order_id, status, created_by, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, event := range events {
		if _, err := tx.Exec(ctx, query,
			event.OrderID, event.Status, event.CreatedBy, event.Note, event.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert status event: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID int) ([]*domain.StatusEvent, error) {
	query := `
		SELECT id, order_id, status, created_by, note, created_at
		FROM order_status_events
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query status history: %w", err)
	}
	defer rows.Close()

	var events []*domain.StatusEvent
	for rows.Next() {
		var event domain.StatusEvent
		if err := rows.Scan(&event.ID, &event.OrderID, &event.Status, &event.CreatedBy,
			&event.Note, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status event: %w", err)
		}
		events = append(events, &event)
	}

	return events, nil
}

func (r *orderRepository) GenerateOrderNumber(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	prefix := fmt.Sprintf("BAKE_%s_", now.Format("20060102"))

	query := `
		SELECT COUNT(*) FROM orders
		WHERE number LIKE $1 AND DATE(created_at) = $2
	`

	var count int
	err := r.db.QueryRow(ctx, query, prefix+"%", now.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return "", fmt.Errorf("failed to count orders: %w", err)
	}

	return fmt.Sprintf("%s%03d", prefix, count+1), nil
}
