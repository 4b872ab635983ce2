package controllers

import (
	"context"
	"net/http"

	"github.com/davidebenetti/artpay-checkout/api/responses"
	"github.com/davidebenetti/artpay-checkout/api/validators"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
)

// QuoteService is the slice of the quote flow the HTTP layer uses.
type QuoteService interface {
	Load(ctx context.Context, orderKey, email string) (*commerce.Order, error)
	Accept(ctx context.Context, orderKey, email string) (*commerce.Order, error)
	Reject(ctx context.Context, orderKey, email string) (*commerce.Order, error)
}

// QuoteLoad resolves the quote behind a link's (order key, email) pair.
func QuoteLoad(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		orderKey, err := validators.QueryString(r, "order_key")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		email, err := validators.QueryString(r, "email")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Load(r.Context(), orderKey, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// QuoteAccept turns the quote into a pending order.
func QuoteAccept(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return quoteSettleHandler(svc, logg, QuoteService.Accept)
}

// QuoteReject cancels the quoted order.
func QuoteReject(svc QuoteService, logg *logger.Logger) http.HandlerFunc {
	return quoteSettleHandler(svc, logg, QuoteService.Reject)
}

func quoteSettleHandler(svc QuoteService, logg *logger.Logger, settle func(QuoteService, context.Context, string, string) (*commerce.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "quote service unavailable"))
			return
		}

		var payload quoteSettleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := settle(svc, r.Context(), payload.OrderKey, payload.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type quoteSettleRequest struct {
	OrderKey string `json:"order_key" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
}
