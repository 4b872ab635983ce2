package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	checkoutsvc "github.com/davidebenetti/artpay-checkout/internal/checkout"
	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	transfersvc "github.com/davidebenetti/artpay-checkout/internal/transfer"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/types"
	"github.com/davidebenetti/artpay-checkout/pkg/uploads"
)

type stubCheckout struct{}

func (stubCheckout) Summarize(context.Context, int64, enums.CheckoutMode) (*checkoutsvc.Summary, error) {
	return &checkoutsvc.Summary{OrderID: 1, Total: "1000.00", Subtotal: "943.40", Stage: enums.StageSelection}, nil
}

func (stubCheckout) SelectMethod(context.Context, int64, enums.PaymentMethod, enums.CheckoutMode) (*checkoutsvc.Selection, error) {
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "not wired in this test")
}

func (stubCheckout) CancelSelection(context.Context, int64) (*commerce.Order, error) {
	return &commerce.Order{ID: 1}, nil
}

type stubTransfer struct{}

func (stubTransfer) Current(context.Context, int64) (*transfersvc.State, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubTransfer) Start(context.Context, int64) (*transfersvc.State, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubTransfer) UploadReceipt(context.Context, int64, uploads.File) (*transfersvc.State, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubTransfer) Confirm(context.Context, int64) (*transfersvc.State, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (stubTransfer) Abandon(context.Context, int64) (*commerce.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

type stubQuotes struct{}

func (stubQuotes) Load(context.Context, string, string) (*commerce.Order, error) {
	return &commerce.Order{ID: 2, Status: enums.OrderStatusQuote}, nil
}

func (stubQuotes) Accept(context.Context, string, string) (*commerce.Order, error) {
	return &commerce.Order{ID: 2, Status: enums.OrderStatusPending}, nil
}

func (stubQuotes) Reject(context.Context, string, string) (*commerce.Order, error) {
	return &commerce.Order{ID: 2, Status: enums.OrderStatusCancelled}, nil
}

func testRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Uploads.MaxSizeBytes = 1 << 20
	return NewRouter(Deps{
		Config:   cfg,
		Checkout: stubCheckout{},
		Transfer: stubTransfer{},
		Quotes:   stubQuotes{},
	})
}

func TestHealthz(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d", w.Code)
	}
	if got := w.Header().Get("X-ArtPay-Env"); got != "test" {
		t.Fatalf("unexpected env header %q", got)
	}
}

func TestCheckoutSummaryRoute(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/orders/1/checkout", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d: %s", w.Code, w.Body.String())
	}

	var body types.SuccessEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	data := body.Data.(map[string]any)
	if data["subtotal"] != "943.40" {
		t.Fatalf("unexpected subtotal %v", data["subtotal"])
	}
}

func TestCheckoutSummaryRejectsBadOrderID(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/orders/abc/checkout", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 but got %d", w.Code)
	}
}

func TestQuoteLoadRequiresCredentials(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/quotes/", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 but got %d", w.Code)
	}
}

func TestQuoteLoadRoute(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/quotes/?order_key=wc_order_1&email=a%40b.it", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 but got %d: %s", w.Code, w.Body.String())
	}
}

func TestTransferStateMapsNotFound(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/orders/9/transfer/", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 but got %d", w.Code)
	}
}

func TestWebhookWithoutServiceIs500(t *testing.T) {
	router := testRouter()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 but got %d", w.Code)
	}
}
