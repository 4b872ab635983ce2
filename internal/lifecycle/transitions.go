package lifecycle

import "github.com/davidebenetti/artpay-checkout/pkg/enums"

// allowedTransitions is the order lifecycle table. Quote edges are reachable
// only through the quote acceptance flow; a quote never jumps straight to
// completed.
var allowedTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusOnHold,
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
		enums.OrderStatusFailed,
	},
	enums.OrderStatusOnHold: {
		enums.OrderStatusProcessing,
		enums.OrderStatusCancelled,
		enums.OrderStatusFailed,
	},
	enums.OrderStatusProcessing: {
		enums.OrderStatusCompleted,
		enums.OrderStatusOnHold,
		enums.OrderStatusCancelled,
		enums.OrderStatusFailed,
	},
	enums.OrderStatusFailed: {
		enums.OrderStatusOnHold,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusQuote: {
		enums.OrderStatusPending,
		enums.OrderStatusCancelled,
	},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another. Same-status moves are treated as idempotent no-ops by the
// machine, not as transitions.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}
