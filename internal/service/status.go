package service

import "storefront/internal/models"

// Допустимые переходы статуса заказа. CANCELLED и REFUNDED терминальные.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
	models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
	models.OrderStatusDelivered:  {models.OrderStatusRefunded},
	models.OrderStatusCancelled:  {models.OrderStatusRefunded},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func AllowedTransitions(from models.OrderStatus) []models.OrderStatus {
	out := make([]models.OrderStatus, len(transitions[from]))
	copy(out, transitions[from])
	return out
}

// IsTerminal: no fulfillment step follows. A cancelled order can still be refunded.
func IsTerminal(s models.OrderStatus) bool {
	return s == models.OrderStatusCancelled || s == models.OrderStatusRefunded
}

// restocksOnCancel reports whether items go back to inventory when cancelling from s.
func restocksOnCancel(from models.OrderStatus) bool {
	return from == models.OrderStatusPending || from == models.OrderStatusProcessing
}

// customerMayCancel: customers may only cancel before the parcel leaves.
func customerMayCancel(from models.OrderStatus) bool {
	return from == models.OrderStatusPending || from == models.OrderStatusProcessing
}

// ValidWalk reports whether statuses start at PENDING and follow allowed edges.
func ValidWalk(statuses []models.OrderStatus) bool {
	if len(statuses) == 0 || statuses[0] != models.OrderStatusPending {
		return false
	}
	for i := 1; i < len(statuses); i++ {
		if !CanTransition(statuses[i-1], statuses[i]) {
			return false
		}
	}
	return true
}
