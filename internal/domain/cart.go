package domain

// Category carries the pickup-date restriction for products filed under it.
// An empty PickupDates list means the category does not restrict pickup.
type Category struct {
	ID          int
	Name        string
	PickupDates []DateKey
}

// CartItem is the slice of a cart line the pickup calculator cares about.
type CartItem struct {
	ProductID int
	Quantity  int
	Category  *Category
}

// RestrictedDates intersects the allowed-date lists declared by the cart's
// categories. nil means no category restricts anything; an empty set means
// no single date satisfies every item together, which callers must surface
// rather than treat as unrestricted.
func RestrictedDates(items []CartItem) map[DateKey]struct{} {
	var result map[DateKey]struct{}
	for _, item := range items {
		if item.Category == nil || len(item.Category.PickupDates) == 0 {
			continue
		}
		set := make(map[DateKey]struct{}, len(item.Category.PickupDates))
		for _, d := range item.Category.PickupDates {
			set[d] = struct{}{}
		}
		if result == nil {
			result = set
			continue
		}
		for d := range result {
			if _, ok := set[d]; !ok {
				delete(result, d)
			}
		}
	}
	return result
}
