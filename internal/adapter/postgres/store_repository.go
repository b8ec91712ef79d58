package postgres

import (
	"context"
	"fmt"
	"time"

	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

type storeRepository struct {
	db DB
}

func NewStoreRepository(db DB) interfaces.StoreRepository {
	return &storeRepository{db: db}
}

// GetSchedule assembles a store's weekly hours and date exceptions. A store
// with no recorded hours yields a nil schedule, which callers treat as "no
// valid pickup window".
func (r *storeRepository) GetSchedule(ctx context.Context, storeID int) (*domain.StoreSchedule, error) {
	hoursQuery := `
		SELECT day_of_week, open_time, close_time, is_closed
		FROM store_hours
		WHERE store_id = $1
	`
	rows, err := r.db.Query(ctx, hoursQuery, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query store hours: %w", err)
	}
	defer rows.Close()

	schedule := &domain.StoreSchedule{
		Exceptions: make(map[domain.DateKey]*domain.TimeRange),
	}
	found := false

	for rows.Next() {
		var (
			day       int
			openTime  string
			closeTime string
			isClosed  bool
		)
		if err := rows.Scan(&day, &openTime, &closeTime, &isClosed); err != nil {
			return nil, fmt.Errorf("failed to scan store hours: %w", err)
		}
		found = true
		if day < 0 || day > 6 || isClosed {
			continue
		}
		schedule.RegularHours[domain.Weekday(day)] = &domain.TimeRange{Start: openTime, End: closeTime}
	}
	rows.Close()

	exceptionsQuery := `
		SELECT date, open_time, close_time, is_closed
		FROM store_schedule_exceptions
		WHERE store_id = $1
	`
	exRows, err := r.db.Query(ctx, exceptionsQuery, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule exceptions: %w", err)
	}
	defer exRows.Close()

	for exRows.Next() {
		var (
			date      time.Time
			openTime  *string
			closeTime *string
			isClosed  bool
		)
		if err := exRows.Scan(&date, &openTime, &closeTime, &isClosed); err != nil {
			return nil, fmt.Errorf("failed to scan schedule exception: %w", err)
		}
		found = true
		key := domain.NewDateKey(date)
		if isClosed || openTime == nil || closeTime == nil {
			schedule.Exceptions[key] = nil
			continue
		}
		schedule.Exceptions[key] = &domain.TimeRange{Start: *openTime, End: *closeTime}
	}

	if !found {
		return nil, nil
	}
	return schedule, nil
}
