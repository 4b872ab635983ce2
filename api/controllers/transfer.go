package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/davidebenetti/artpay-checkout/api/responses"
	"github.com/davidebenetti/artpay-checkout/api/validators"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	transfersvc "github.com/davidebenetti/artpay-checkout/internal/transfer"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/uploads"
)

// TransferService is the slice of the bank-transfer flow the HTTP layer uses.
type TransferService interface {
	Current(ctx context.Context, orderID int64) (*transfersvc.State, error)
	Start(ctx context.Context, orderID int64) (*transfersvc.State, error)
	UploadReceipt(ctx context.Context, orderID int64, file uploads.File) (*transfersvc.State, error)
	Confirm(ctx context.Context, orderID int64) (*transfersvc.State, error)
	Abandon(ctx context.Context, orderID int64) (*commerce.Order, error)
}

// TransferState reports the flow's current step, derived from server state.
func TransferState(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return transferStateHandler(svc, logg, func(svc TransferService, r *http.Request, orderID int64) (*transfersvc.State, error) {
		return svc.Current(r.Context(), orderID)
	})
}

// TransferStart parks the order on hold under the bank-transfer method.
func TransferStart(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return transferStateHandler(svc, logg, func(svc TransferService, r *http.Request, orderID int64) (*transfersvc.State, error) {
		return svc.Start(r.Context(), orderID)
	})
}

// TransferReceipt accepts the buyer's payment receipt as a multipart upload.
func TransferReceipt(svc TransferService, maxSizeBytes int64, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(maxSizeBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body"))
			return
		}

		file, header, err := r.FormFile("receipt")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "receipt file is required"))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(io.LimitReader(file, maxSizeBytes+1))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read receipt file"))
			return
		}

		state, err := svc.UploadReceipt(r.Context(), orderID, uploads.File{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransferStateResponse(state))
	}
}

// TransferConfirm moves a matched transfer into processing.
func TransferConfirm(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return transferStateHandler(svc, logg, func(svc TransferService, r *http.Request, orderID int64) (*transfersvc.State, error) {
		return svc.Confirm(r.Context(), orderID)
	})
}

// TransferAbandon cancels the transfer attempt.
func TransferAbandon(svc TransferService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Abandon(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func transferStateHandler(svc TransferService, logg *logger.Logger, call func(TransferService, *http.Request, int64) (*transfersvc.State, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		orderID, err := validators.OrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := call(svc, r, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newTransferStateResponse(state))
	}
}

type transferStateResponse struct {
	Order   orderResponse       `json:"order"`
	Step    string              `json:"step"`
	Details bankDetailsResponse `json:"bank_details"`
}

type bankDetailsResponse struct {
	AccountHolder string `json:"account_holder"`
	IBAN          string `json:"iban"`
	BIC           string `json:"bic,omitempty"`
	Bank          string `json:"bank,omitempty"`
	Reference     string `json:"reference"`
}

func newTransferStateResponse(state *transfersvc.State) transferStateResponse {
	return transferStateResponse{
		Order: newOrderResponse(state.Order),
		Step:  state.Step.String(),
		Details: bankDetailsResponse{
			AccountHolder: state.Details.AccountHolder,
			IBAN:          state.Details.IBAN,
			BIC:           state.Details.BIC,
			Bank:          state.Details.Bank,
			Reference:     state.Details.Reference,
		},
	}
}
