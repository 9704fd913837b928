package message

import "hivley/internal/domain"

// Aggregate folds per-recipient receipts into the status the sender sees.
func Aggregate(statuses []domain.DeliveryStatus) domain.AggregateStatus {
	if len(statuses) == 0 {
		return domain.AggregateSending
	}
	min := domain.DeliveryStatusRead
	for _, s := range statuses {
		if s.Rank() < min.Rank() {
			min = s
		}
	}
	switch min {
	case domain.DeliveryStatusRead:
		return domain.AggregateRead
	case domain.DeliveryStatusDelivered:
		return domain.AggregateDelivered
	default:
		return domain.AggregateSent
	}
}

// Advance returns the status to store when next is written over current.
// A write that would move backward keeps current.
func Advance(current, next domain.DeliveryStatus) domain.DeliveryStatus {
	if next.Rank() > current.Rank() {
		return next
	}
	return current
}
