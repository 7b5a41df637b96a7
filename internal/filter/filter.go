// Package filter evaluates stateless predicates over an in-memory order list.
// It owns no state and never mutates its input; the UI layer holds the list
// and re-applies the filter whenever its controls change.
package filter

import (
	"strings"
	"time"

	"tokobuku/backend/internal/domain"
)

// All disables the status or payment predicate.
const All = "all"

// Spec describes the active predicates. Zero values mean "not filtering on
// this axis". All active predicates are ANDed.
type Spec struct {
	Status  string
	Payment string
	From    *time.Time
	To      *time.Time
	Search  string
}

// Apply returns the orders matching the spec, preserving input order. Date
// bounds are inclusive and day-granular: From is normalized to 00:00:00 and
// To to 23:59:59.999. An order without a created_at timestamp is excluded
// whenever either bound is set.
func Apply(orders []domain.Order, spec Spec) []domain.Order {
	result := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if Matches(order, spec) {
			result = append(result, order)
		}
	}
	return result
}

func Matches(order domain.Order, spec Spec) bool {
	if spec.Status != "" && spec.Status != All && order.Status != spec.Status {
		return false
	}
	if spec.Payment != "" && spec.Payment != All && order.PaymentStatus != spec.Payment {
		return false
	}
	if !matchesDateRange(order, spec.From, spec.To) {
		return false
	}
	return matchesSearch(order, spec.Search)
}

func matchesDateRange(order domain.Order, from *time.Time, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if order.CreatedAt.IsZero() {
		return false
	}

	day := startOfDay(order.CreatedAt)
	if from != nil && day.Before(startOfDay(*from)) {
		return false
	}
	if to != nil && day.After(endOfDay(*to)) {
		return false
	}
	return true
}

func matchesSearch(order domain.Order, search string) bool {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return true
	}
	return strings.Contains(strings.ToLower(order.Name), search) ||
		strings.Contains(order.Last4DigitsPhone, search)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
