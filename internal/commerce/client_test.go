package commerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidebenetti/artpay-checkout/pkg/config"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(config.CommerceConfig{
		BaseURL:        server.URL,
		ConsumerKey:    "ck_test",
		ConsumerSecret: "cs_test",
	}, nil)
	require.NoError(t, err)
	return client, server
}

func TestGetOrderDecodesPayload(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/42", r.URL.Path)
		_, _, ok := r.BasicAuth()
		assert.True(t, ok, "expected basic auth credentials")
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{
			ID:       42,
			OrderKey: "wc_order_abc",
			Status:   enums.OrderStatusPending,
			Total:    "1000.00",
			FeeLines: []FeeLine{{ID: 1, Name: "ArtPay fee", Total: "60.00"}},
		})
	}))

	order, err := client.GetOrder(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), order.ID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.True(t, order.HasFeeLines())
}

func TestGetOrderNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetOrder(context.Background(), 99)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestGetOrderServerErrorIsRetryable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetOrder(context.Background(), 7)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestGetOrderRejectsUndecodableSuccess(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("upstream proxy page"))
	}))

	_, err := client.GetOrder(context.Background(), 42)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Contains(t, typed.Error(), "incomplete order")
}

func TestGetOrderByKeySendsCredentialPair(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/lookup", r.URL.Path)
		assert.Equal(t, "wc_order_abc", r.URL.Query().Get("order_key"))
		assert.Equal(t, "buyer@example.com", r.URL.Query().Get("email"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{ID: 5, Status: enums.OrderStatusQuote})
	}))

	order, err := client.GetOrderByKey(context.Background(), "wc_order_abc", "buyer@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusQuote, order.Status)
}

func TestGetOrderByKeyValidatesInput(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no remote call expected")
	}))

	_, err := client.GetOrderByKey(context.Background(), "", "buyer@example.com")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = client.GetOrderByKey(context.Background(), "wc_order_abc", "")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListOrdersForwardsFilters(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "quote", r.URL.Query().Get("status"))
		assert.Equal(t, "17", r.URL.Query().Get("customer"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]Order{{ID: 1}, {ID: 2}})
	}))

	orders, err := client.ListOrders(context.Background(), ListParams{
		Status:   enums.OrderStatusQuote,
		Customer: "17",
	})
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}

func TestUpdateOrderSendsPartialPatch(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "on-hold", body["status"])
		assert.Equal(t, "bank_transfer", body["payment_method"])
		_, hasNote := body["customer_note"]
		assert.False(t, hasNote, "unset fields must not appear in the patch body")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{ID: 42, Status: enums.OrderStatusOnHold, PaymentMethod: enums.MethodTransfer})
	}))

	status := enums.OrderStatusOnHold
	method := enums.MethodTransfer
	order, err := client.UpdateOrder(context.Background(), 42, OrderPatch{
		Status:        &status,
		PaymentMethod: &method,
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOnHold, order.Status)
}

func TestUpdateOrderEmptyPatchFallsBackToRead(t *testing.T) {
	reads := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		reads++
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Order{ID: 42})
	}))

	_, err := client.UpdateOrder(context.Background(), 42, OrderPatch{})
	require.NoError(t, err)
	assert.Equal(t, 1, reads)
}

func TestLoanProgressPrefersStructuredTag(t *testing.T) {
	order := &Order{
		LoanState:    enums.LoanStateObtained,
		CustomerNote: "Documentazione caricata",
	}
	assert.Equal(t, enums.LoanStateObtained, order.LoanProgress())
}

func TestLoanProgressFallsBackToLegacyNote(t *testing.T) {
	order := &Order{CustomerNote: "31/07 Documentazione caricata dal cliente"}
	assert.Equal(t, enums.LoanStateDocumentationUploaded, order.LoanProgress())

	var nilOrder *Order
	assert.Equal(t, enums.LoanStateNotRequested, nilOrder.LoanProgress())
}
