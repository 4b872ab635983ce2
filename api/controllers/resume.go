package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/davidebenetti/artpay-checkout/api/responses"
	"github.com/davidebenetti/artpay-checkout/api/validators"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/redis"
)

// OrderLister is the slice of the commerce client the resume endpoint uses.
type OrderLister interface {
	ListOrders(ctx context.Context, params commerce.ListParams) ([]commerce.Order, error)
}

type TrackingReader interface {
	GetTracking(ctx context.Context, orderID int64) (string, error)
}

// ResumeCheckout lists a customer's open orders together with the method
// they last selected, so the storefront can drop them back where they left.
func ResumeCheckout(orders OrderLister, tracking TrackingReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if orders == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commerce client unavailable"))
			return
		}

		customer, err := validators.QueryString(r, "customer")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		open := make([]resumeEntry, 0)
		for _, status := range []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusOnHold} {
			batch, err := orders.ListOrders(r.Context(), commerce.ListParams{Status: status, Customer: customer})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for i := range batch {
				entry := resumeEntry{Order: newOrderResponse(&batch[i])}
				if tracking != nil {
					tracked, err := tracking.GetTracking(r.Context(), batch[i].ID)
					switch {
					case err == nil:
						entry.TrackedMethod = tracked
					case errors.Is(err, redis.ErrNotFound):
					default:
						// Tracking is best effort; an unavailable store
						// must not block the list.
						if logg != nil {
							logg.Warn(logg.WithOrderID(r.Context(), batch[i].ID), "failed to read tracking key")
						}
					}
				}
				open = append(open, entry)
			}
		}

		responses.WriteSuccess(w, resumeResponse{Orders: open})
	}
}

type resumeResponse struct {
	Orders []resumeEntry `json:"orders"`
}

type resumeEntry struct {
	Order         orderResponse `json:"order"`
	TrackedMethod string        `json:"tracked_method,omitempty"`
}
