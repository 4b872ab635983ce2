package lifecycle

import "github.com/davidebenetti/artpay-checkout/pkg/enums"

// StageFor projects the storefront payment stage from persisted order state.
// This is the single projection everywhere consumes; the stage is recomputed
// on every read and never stored, so it cannot diverge from the order.
func StageFor(status enums.OrderStatus, method enums.PaymentMethod, loanState enums.LoanState) enums.PaymentStage {
	switch status {
	case enums.OrderStatusCompleted:
		return enums.StageCompleted
	case enums.OrderStatusFailed:
		return enums.StageFailed
	case enums.OrderStatusProcessing:
		return enums.StageProcessing
	case enums.OrderStatusOnHold:
		// Parked orders advance once the financing application or transfer
		// documentation has progressed.
		switch loanState {
		case enums.LoanStateObtained, enums.LoanStateDocumentationUploaded, enums.LoanStateTransferReceived:
			return enums.StageProcessing
		default:
			return enums.StageConfirmation
		}
	case enums.OrderStatusPending:
		if method == enums.MethodNone {
			return enums.StageSelection
		}
		return enums.StageConfirmation
	default:
		// quote, cancelled, refunded: the buyer starts from scratch.
		return enums.StageSelection
	}
}
