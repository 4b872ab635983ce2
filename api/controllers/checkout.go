package controllers

import (
	"context"
	"net/http"

	"github.com/davidebenetti/artpay-checkout/api/responses"
	"github.com/davidebenetti/artpay-checkout/api/validators"
	checkoutsvc "github.com/davidebenetti/artpay-checkout/internal/checkout"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
)

// CheckoutService is the slice of the synchronizer the HTTP layer uses.
type CheckoutService interface {
	Summarize(ctx context.Context, orderID int64, mode enums.CheckoutMode) (*checkoutsvc.Summary, error)
	SelectMethod(ctx context.Context, orderID int64, method enums.PaymentMethod, mode enums.CheckoutMode) (*checkoutsvc.Selection, error)
	CancelSelection(ctx context.Context, orderID int64) (*commerce.Order, error)
}

// CheckoutSummary renders totals, per-method fees, eligible methods and the
// derived stage for an order.
func CheckoutSummary(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		mode, err := enums.ParseCheckoutMode(r.URL.Query().Get("mode"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout mode"))
			return
		}

		summary, err := svc.Summarize(r.Context(), orderID, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSummaryResponse(summary))
	}
}

// SelectPaymentMethod points the order's live intent at the requested method.
func SelectPaymentMethod(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload selectMethodRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method"))
			return
		}

		mode, err := enums.ParseCheckoutMode(payload.Mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout mode"))
			return
		}

		selection, err := svc.SelectMethod(r.Context(), orderID, method, mode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSelectionResponse(selection))
	}
}

// CancelPaymentMethod returns the order to the undecided method.
func CancelPaymentMethod(svc CheckoutService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CancelSelection(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type selectMethodRequest struct {
	Method string `json:"method" validate:"required"`
	Mode   string `json:"mode,omitempty" validate:"omitempty,oneof=standard auction redeem"`
}

type summaryResponse struct {
	OrderID         int64    `json:"order_id"`
	Total           string   `json:"total"`
	Subtotal        string   `json:"subtotal"`
	ArtPayFee       string   `json:"artpay_fee"`
	KlarnaFee       string   `json:"klarna_fee"`
	CombinedFee     string   `json:"combined_fee"`
	EligibleMethods []string `json:"eligible_methods"`
	SelectedMethod  string   `json:"selected_method,omitempty"`
	Stage           string   `json:"stage"`
}

func newSummaryResponse(summary *checkoutsvc.Summary) summaryResponse {
	methods := make([]string, 0, len(summary.EligibleMethods))
	for _, method := range summary.EligibleMethods {
		methods = append(methods, method.String())
	}
	return summaryResponse{
		OrderID:         summary.OrderID,
		Total:           summary.Total,
		Subtotal:        summary.Subtotal,
		ArtPayFee:       summary.ArtPayFee,
		KlarnaFee:       summary.KlarnaFee,
		CombinedFee:     summary.CombinedFee,
		EligibleMethods: methods,
		SelectedMethod:  summary.SelectedMethod.String(),
		Stage:           summary.Stage.String(),
	}
}

type selectionResponse struct {
	Order  orderResponse  `json:"order"`
	Intent intentResponse `json:"intent"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	AmountMinor  int64  `json:"amount_minor"`
}

func newSelectionResponse(selection *checkoutsvc.Selection) selectionResponse {
	return selectionResponse{
		Order: newOrderResponse(selection.Order),
		Intent: intentResponse{
			ID:           selection.Intent.ID,
			ClientSecret: selection.Intent.ClientSecret,
			Status:       selection.Intent.Status.String(),
			AmountMinor:  selection.Intent.AmountMinor,
		},
	}
}

type orderResponse struct {
	ID                 int64  `json:"id"`
	OrderKey           string `json:"order_key"`
	Status             string `json:"status"`
	Total              string `json:"total"`
	Currency           string `json:"currency"`
	PaymentMethod      string `json:"payment_method,omitempty"`
	PaymentMethodTitle string `json:"payment_method_title,omitempty"`
	LoanState          string `json:"loan_state,omitempty"`
}

func newOrderResponse(order *commerce.Order) orderResponse {
	return orderResponse{
		ID:                 order.ID,
		OrderKey:           order.OrderKey,
		Status:             order.Status.String(),
		Total:              order.Total,
		Currency:           order.Currency,
		PaymentMethod:      order.PaymentMethod.String(),
		PaymentMethodTitle: order.PaymentMethodTitle,
		LoanState:          order.LoanProgress().String(),
	}
}
