package transfer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/internal/stepflow"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/uploads"
)

type stubOrders struct {
	order   *commerce.Order
	patches []commerce.OrderPatch
	getErr  error
	updErr  error
}

func (s *stubOrders) GetOrder(_ context.Context, _ int64) (*commerce.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	copied := *s.order
	return &copied, nil
}

func (s *stubOrders) UpdateOrder(_ context.Context, _ int64, patch commerce.OrderPatch) (*commerce.Order, error) {
	if s.updErr != nil {
		return nil, s.updErr
	}
	s.patches = append(s.patches, patch)
	copied := *s.order
	if patch.PaymentMethod != nil {
		copied.PaymentMethod = *patch.PaymentMethod
	}
	if patch.PaymentMethodTitle != nil {
		copied.PaymentMethodTitle = *patch.PaymentMethodTitle
	}
	if patch.LoanState != nil {
		copied.LoanState = *patch.LoanState
	}
	if patch.CustomerNote != nil {
		copied.CustomerNote = *patch.CustomerNote
	}
	if patch.Status != nil {
		copied.Status = *patch.Status
	}
	s.order = &copied
	return &copied, nil
}

type stubMachine struct {
	orders      *stubOrders
	transitions []enums.OrderStatus
	cancelled   bool
	err         error
}

func (s *stubMachine) Transition(ctx context.Context, order *commerce.Order, to enums.OrderStatus, opts lifecycle.TransitionOptions) (*commerce.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.transitions = append(s.transitions, to)
	patch := commerce.OrderPatch{Status: &to, LoanState: opts.LoanState}
	return s.orders.UpdateOrder(ctx, order.ID, patch)
}

func (s *stubMachine) Cancel(ctx context.Context, order *commerce.Order) (*commerce.Order, error) {
	s.cancelled = true
	cancelled := enums.OrderStatusCancelled
	neutral := enums.MethodNone
	empty := ""
	return s.orders.UpdateOrder(ctx, order.ID, commerce.OrderPatch{
		Status:             &cancelled,
		PaymentMethod:      &neutral,
		PaymentMethodTitle: &empty,
		CustomerNote:       &empty,
	})
}

type stubUploader struct {
	result     *uploads.Result
	err        error
	calls      int
	uploadHook func()
}

func (s *stubUploader) Upload(_ context.Context, _ uploads.File) (*uploads.Result, error) {
	s.calls++
	if s.uploadHook != nil {
		s.uploadHook()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubMailer struct {
	sent   []map[string]string
	toAddr string
	err    error
}

func (s *stubMailer) Send(_ context.Context, toEmail, _ string, params map[string]string) error {
	if s.err != nil {
		return s.err
	}
	s.toAddr = toEmail
	s.sent = append(s.sent, params)
	return nil
}

func bankCfg() config.BankConfig {
	return config.BankConfig{
		AccountHolder: "ArtPay S.r.l.",
		IBAN:          "IT60X0542811101000000123456",
		BIC:           "BPMOIT22",
		Name:          "Banco Test",
		NotifyEmail:   "ops@example.com",
		NotifyName:    "Operations",
	}
}

func pendingOrder() *commerce.Order {
	return &commerce.Order{
		ID:       772,
		OrderKey: "wc_order_transfer1",
		Status:   enums.OrderStatusPending,
		Total:    "4500.00",
		Billing:  commerce.Address{Email: "buyer@example.com"},
	}
}

func newService(t *testing.T, orders *stubOrders, machine *stubMachine, up *stubUploader, mail *stubMailer) *Service {
	t.Helper()
	svc, err := NewService(orders, machine, up, mail, bankCfg(), nil)
	require.NoError(t, err)
	return svc
}

func TestStartParksOrderOnHoldWithTransferMethod(t *testing.T) {
	orders := &stubOrders{order: pendingOrder()}
	machine := &stubMachine{orders: orders}
	svc := newService(t, orders, machine, &stubUploader{}, &stubMailer{})

	state, err := svc.Start(context.Background(), 772)
	require.NoError(t, err)

	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusOnHold}, machine.transitions)
	assert.Equal(t, enums.MethodTransfer, state.Order.PaymentMethod)
	assert.Equal(t, stepflow.StepInstructions, state.Step)
	assert.Equal(t, "IT60X0542811101000000123456", state.Details.IBAN)
	assert.Equal(t, "wc_order_transfer1", state.Details.Reference)
}

func TestStartIsIdempotentOnceParked(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	machine := &stubMachine{orders: orders}
	svc := newService(t, orders, machine, &stubUploader{}, &stubMailer{})

	_, err := svc.Start(context.Background(), 772)
	require.NoError(t, err)

	assert.Empty(t, machine.transitions)
	assert.Empty(t, orders.patches)
}

func TestUploadReceiptAdvancesStateAndNotifies(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	up := &stubUploader{result: &uploads.Result{UUID: "u-9f2", Filename: "receipt.pdf"}}
	mail := &stubMailer{}
	svc := newService(t, orders, &stubMachine{orders: orders}, up, mail)

	state, err := svc.UploadReceipt(context.Background(), 772, uploads.File{Name: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.NoError(t, err)

	assert.Equal(t, enums.LoanStateDocumentationUploaded, state.Order.LoanState)
	assert.Equal(t, stepflow.StepConfirmation, state.Step)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "ops@example.com", mail.toAddr)
	// The mail must reference the stored file, not the raw upload.
	assert.Equal(t, "u-9f2", mail.sent[0]["upload_uuid"])
}

func TestUploadReceiptFailureLeavesOrderUntouched(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	up := &stubUploader{err: pkgerrors.New(pkgerrors.CodeDependency, "upload service unavailable")}
	mail := &stubMailer{}
	svc := newService(t, orders, &stubMachine{orders: orders}, up, mail)

	_, err := svc.UploadReceipt(context.Background(), 772, uploads.File{Name: "receipt.pdf", ContentType: "application/pdf", Data: []byte("%PDF")})
	require.Error(t, err)

	assert.Empty(t, orders.patches, "no order mutation after a failed upload")
	assert.Empty(t, mail.sent, "no notification after a failed upload")
	assert.Equal(t, enums.LoanState(""), orders.order.LoanState)
}

func TestUploadReceiptRequiresStartedFlow(t *testing.T) {
	orders := &stubOrders{order: pendingOrder()}
	svc := newService(t, orders, &stubMachine{orders: orders}, &stubUploader{}, &stubMailer{})

	_, err := svc.UploadReceipt(context.Background(), 772, uploads.File{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("x")})

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkgerrors.CodeStateConflict, appErr.Code())
}

func TestUploadReceiptRejectsDoubleSubmit(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	up := &stubUploader{result: &uploads.Result{UUID: "u-1", Filename: "r.pdf"}}
	mail := &stubMailer{}
	svc := newService(t, orders, &stubMachine{orders: orders}, up, mail)

	file := uploads.File{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("x")}
	up.uploadHook = func() {
		_, err := svc.UploadReceipt(context.Background(), 772, file)
		var appErr *pkgerrors.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, pkgerrors.CodeConflict, appErr.Code())
	}

	_, err := svc.UploadReceipt(context.Background(), 772, file)
	require.NoError(t, err)

	assert.Equal(t, 1, up.calls, "the duplicate submit must not reach the uploader")
	assert.Len(t, mail.sent, 1, "operations must be notified once")
}

func TestUploadReceiptNotificationFailureIsNonFatal(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	up := &stubUploader{result: &uploads.Result{UUID: "u-1", Filename: "r.pdf"}}
	mail := &stubMailer{err: pkgerrors.New(pkgerrors.CodeDependency, "mail service down")}
	svc := newService(t, orders, &stubMachine{orders: orders}, up, mail)

	state, err := svc.UploadReceipt(context.Background(), 772, uploads.File{Name: "r.pdf", ContentType: "application/pdf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, enums.LoanStateDocumentationUploaded, state.Order.LoanState)
}

func TestConfirmMovesToProcessing(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	order.LoanState = enums.LoanStateDocumentationUploaded
	orders := &stubOrders{order: order}
	machine := &stubMachine{orders: orders}
	svc := newService(t, orders, machine, &stubUploader{}, &stubMailer{})

	state, err := svc.Confirm(context.Background(), 772)
	require.NoError(t, err)

	assert.Equal(t, []enums.OrderStatus{enums.OrderStatusProcessing}, machine.transitions)
	assert.Equal(t, enums.LoanStateTransferReceived, state.Order.LoanState)
}

func TestAbandonCancelsThroughMachine(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	orders := &stubOrders{order: order}
	machine := &stubMachine{orders: orders}
	svc := newService(t, orders, machine, &stubUploader{}, &stubMailer{})

	cancelled, err := svc.Abandon(context.Background(), 772)
	require.NoError(t, err)

	assert.True(t, machine.cancelled)
	assert.Equal(t, enums.MethodNone, cancelled.PaymentMethod)
	assert.Equal(t, "", cancelled.CustomerNote)
}

func TestCurrentResumesFromLegacyNote(t *testing.T) {
	order := pendingOrder()
	order.Status = enums.OrderStatusOnHold
	order.PaymentMethod = enums.MethodTransfer
	order.CustomerNote = "31/07 Documentazione caricata dal cliente"
	orders := &stubOrders{order: order}
	svc := newService(t, orders, &stubMachine{orders: orders}, &stubUploader{}, &stubMailer{})

	state, err := svc.Current(context.Background(), 772)
	require.NoError(t, err)
	assert.Equal(t, stepflow.StepConfirmation, state.Step)
}
