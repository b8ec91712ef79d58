package schedule

import (
	"context"
	"fmt"
	"time"

	"bakehouse/internal/adapter/logger"
	"bakehouse/internal/config"
	"bakehouse/internal/domain"
	"bakehouse/internal/interfaces"
)

// daySlots holds all 96 quarter-hour labels of one day, built once and
// filtered per opening window instead of regenerated per call.
var daySlots = buildDaySlots()

func buildDaySlots() []string {
	slots := make([]string, 0, 24*4)
	for h := 0; h < 24; h++ {
		for m := 0; m < 60; m += 15 {
			slots = append(slots, fmt.Sprintf("%02d:%02d", h, m))
		}
	}
	return slots
}

type Service struct {
	storeRepo   interfaces.StoreRepository
	catalogRepo interfaces.CatalogRepository
	logger      logger.Logger
	cutoffHour  int
	horizonDays int
	now         func() time.Time
}

func NewService(storeRepo interfaces.StoreRepository, catalogRepo interfaces.CatalogRepository, logger logger.Logger, cfg config.PickupConfig) *Service {
	return &Service{
		storeRepo:   storeRepo,
		catalogRepo: catalogRepo,
		logger:      logger,
		cutoffHour:  cfg.CutoffHour,
		horizonDays: cfg.HorizonDays,
		now:         time.Now,
	}
}

// today returns the current day truncated to local midnight.
func (s *Service) today() time.Time {
	n := s.now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
}

func midnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// IsBeforeDailyCutoff reports whether next-day pickup is still orderable.
func (s *Service) IsBeforeDailyCutoff() bool {
	n := s.now()
	cutoff := time.Date(n.Year(), n.Month(), n.Day(), s.cutoffHour, 0, 0, 0, n.Location())
	return n.Before(cutoff)
}

// earliestCandidate is tomorrow before the cutoff, the day after otherwise.
func (s *Service) earliestCandidate() time.Time {
	days := 1
	if !s.IsBeforeDailyCutoff() {
		days = 2
	}
	return s.today().AddDate(0, 0, days)
}

// IsValidPickupDate applies every pickup rule to a single candidate date.
func (s *Service) IsValidPickupDate(date time.Time, sched *domain.StoreSchedule, restricted map[domain.DateKey]struct{}) bool {
	today := s.today()
	day := midnight(date, today.Location())

	if !day.After(today) {
		return false
	}
	if day.After(today.AddDate(0, 0, s.horizonDays)) {
		return false
	}
	if day.Equal(today.AddDate(0, 0, 1)) && !s.IsBeforeDailyCutoff() {
		return false
	}
	if domain.IsClosed(day, sched) {
		return false
	}
	if restricted != nil {
		if _, ok := restricted[domain.NewDateKey(day)]; !ok {
			return false
		}
	}
	return true
}

// AvailableDates lists every valid pickup date inside the horizon, in order.
func (s *Service) AvailableDates(sched *domain.StoreSchedule, restricted map[domain.DateKey]struct{}) []domain.DateKey {
	var dates []domain.DateKey
	horizon := s.today().AddDate(0, 0, s.horizonDays)
	for day := s.earliestCandidate(); !day.After(horizon); day = day.AddDate(0, 0, 1) {
		if s.IsValidPickupDate(day, sched, restricted) {
			dates = append(dates, domain.NewDateKey(day))
		}
	}
	return dates
}

// FirstAvailableDate scans forward from the earliest candidate and returns
// nil when no date inside the horizon qualifies.
func (s *Service) FirstAvailableDate(sched *domain.StoreSchedule, restricted map[domain.DateKey]struct{}) *time.Time {
	horizon := s.today().AddDate(0, 0, s.horizonDays)
	for day := s.earliestCandidate(); !day.After(horizon); day = day.AddDate(0, 0, 1) {
		if s.IsValidPickupDate(day, sched, restricted) {
			return &day
		}
	}
	return nil
}

// TimeSlots filters the quarter-hour day table to [start, end). A nil or
// malformed window yields no slots.
func TimeSlots(r *domain.TimeRange) []string {
	if r == nil {
		return nil
	}
	start, err := domain.ParseClock(r.Start)
	if err != nil {
		return nil
	}
	end, err := domain.ParseClock(r.End)
	if err != nil {
		return nil
	}

	var slots []string
	for i, label := range daySlots {
		minutes := i * 15
		if minutes >= start && minutes < end {
			slots = append(slots, label)
		}
	}
	return slots
}

// GetAvailability assembles the pickup options for a store and cart. Empty
// results are normal values, never errors.
func (s *Service) GetAvailability(ctx context.Context, storeID int, categoryIDs []int, date *string) (*interfaces.AvailabilityResponse, error) {
	sched, err := s.storeRepo.GetSchedule(ctx, storeID)
	if err != nil {
		return nil, err
	}

	restricted, err := s.restrictedForCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	resp := &interfaces.AvailabilityResponse{
		Dates: s.AvailableDates(sched, restricted),
	}
	if len(resp.Dates) == 0 {
		s.logger.Debug("no_pickup_dates", "No valid pickup date for store", "", map[string]interface{}{
			"store_id":   storeID,
			"categories": categoryIDs,
		})
		return resp, nil
	}
	resp.FirstAvailable = &resp.Dates[0]

	selected := *resp.FirstAvailable
	if date != nil {
		requested := domain.DateKey(*date)
		for _, d := range resp.Dates {
			if d == requested {
				selected = requested
				break
			}
		}
	}
	resp.SelectedDate = &selected

	day, err := selected.Date(s.now().Location())
	if err != nil {
		return nil, err
	}
	resp.TimeSlots = TimeSlots(sched.Resolve(day))

	return resp, nil
}

// ValidatePickup is the checkout-side gate for a requested pickup date/time.
func (s *Service) ValidatePickup(ctx context.Context, storeID int, categoryIDs []int, date, timeLabel string) error {
	day, err := domain.DateKey(date).Date(s.now().Location())
	if err != nil {
		return fmt.Errorf("%w: pickup date must be yyyy-MM-dd", domain.ErrValidation)
	}

	sched, err := s.storeRepo.GetSchedule(ctx, storeID)
	if err != nil {
		return err
	}

	restricted, err := s.restrictedForCategories(ctx, categoryIDs)
	if err != nil {
		return err
	}

	if !s.IsValidPickupDate(day, sched, restricted) {
		return fmt.Errorf("%w: pickup is not available on %s", domain.ErrValidation, date)
	}

	if timeLabel != "" {
		for _, slot := range TimeSlots(sched.Resolve(day)) {
			if slot == timeLabel {
				return nil
			}
		}
		return fmt.Errorf("%w: pickup time %s is not available on %s", domain.ErrValidation, timeLabel, date)
	}

	return nil
}

// restrictedForCategories loads the cart's categories and intersects their
// allowed pickup dates.
func (s *Service) restrictedForCategories(ctx context.Context, categoryIDs []int) (map[domain.DateKey]struct{}, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	categories, err := s.catalogRepo.GetCategories(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}

	items := make([]domain.CartItem, len(categories))
	for i, c := range categories {
		items[i] = domain.CartItem{Category: c}
	}
	return domain.RestrictedDates(items), nil
}
