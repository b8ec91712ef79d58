package postgres

import (
	"context"
	"fmt"
	"time"

	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type catalogRepository struct {
	db DB
}

func NewCatalogRepository(db DB) interfaces.CatalogRepository {
	return &catalogRepository{db: db}
}

// GetCategories loads categories with their allowed pickup dates. A category
// without pickup_dates rows comes back with an empty list, meaning it does
// not restrict pickup.
func (r *catalogRepository) GetCategories(ctx context.Context, ids []int) ([]*domain.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT id, name FROM categories WHERE id = ANY($1)`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]*domain.Category)
	var categories []*domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		byID[c.ID] = &c
		categories = append(categories, &c)
	}
	rows.Close()

	datesQuery := `
		SELECT category_id, pickup_date
		FROM category_pickup_dates
		WHERE category_id = ANY($1)
		ORDER BY pickup_date ASC
	`
	dateRows, err := r.db.Query(ctx, datesQuery, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query category pickup dates: %w", err)
	}
	defer dateRows.Close()

	for dateRows.Next() {
		var (
			categoryID int
			date       time.Time
		)
		if err := dateRows.Scan(&categoryID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan pickup date: %w", err)
		}
		if c, ok := byID[categoryID]; ok {
			c.PickupDates = append(c.PickupDates, domain.NewDateKey(date))
		}
	}

	return categories, nil
}
