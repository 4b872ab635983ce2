package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/internal/stepflow"
	"github.com/davidebenetti/artpay-checkout/pkg/config"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/mailer"
	"github.com/davidebenetti/artpay-checkout/pkg/uploads"
)

type orderClient interface {
	GetOrder(ctx context.Context, orderID int64) (*commerce.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, patch commerce.OrderPatch) (*commerce.Order, error)
}

type transitioner interface {
	Transition(ctx context.Context, order *commerce.Order, to enums.OrderStatus, opts lifecycle.TransitionOptions) (*commerce.Order, error)
	Cancel(ctx context.Context, order *commerce.Order) (*commerce.Order, error)
}

// State is the flow snapshot the storefront renders: where the buyer is, and
// the account to wire to.
type State struct {
	Order   *commerce.Order
	Step    stepflow.Step
	Details stepflow.BankDetails
}

// Service drives the bank-transfer checkout: park the order on hold, collect
// the payment receipt, and hand the confirmed order to fulfilment.
type Service struct {
	orders   orderClient
	machine  transitioner
	uploader uploads.Uploader
	mail     mailer.Sender
	details  stepflow.BankDetails
	notify   notifyTarget
	logg     *logger.Logger

	mu       sync.Mutex
	inFlight map[int64]struct{}
}

type notifyTarget struct {
	email string
	name  string
}

// NewService builds the transfer flow service.
func NewService(
	orders orderClient,
	machine transitioner,
	uploader uploads.Uploader,
	mail mailer.Sender,
	cfg config.BankConfig,
	logg *logger.Logger,
) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine required")
	}
	if uploader == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if mail == nil {
		return nil, fmt.Errorf("mailer required")
	}
	return &Service{
		orders:   orders,
		machine:  machine,
		uploader: uploader,
		mail:     mail,
		details: stepflow.BankDetails{
			AccountHolder: cfg.AccountHolder,
			IBAN:          cfg.IBAN,
			BIC:           cfg.BIC,
			Bank:          cfg.Name,
		},
		notify:   notifyTarget{email: cfg.NotifyEmail, name: cfg.NotifyName},
		logg:     logg,
		inFlight: map[int64]struct{}{},
	}, nil
}

// acquire guards against re-entrant triggers (double-submits) on the same
// order while a mutation is in flight.
func (s *Service) acquire(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return pkgerrors.New(pkgerrors.CodeConflict, "a transfer step is already in progress for this order")
	}
	s.inFlight[orderID] = struct{}{}
	return nil
}

func (s *Service) release(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}

// Current re-derives the flow position from a fresh order read. Client memory
// is never trusted: a refresh resumes from server state.
func (s *Service) Current(ctx context.Context, orderID int64) (*State, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.state(order), nil
}

// Start parks the order on hold under the bank-transfer method and opens the
// flow at its derived initial step. Starting an already started transfer is a
// no-op that returns the current state.
func (s *Service) Start(ctx context.Context, orderID int64) (*State, error) {
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusOnHold && order.PaymentMethod == enums.MethodTransfer {
		return s.state(order), nil
	}

	method := enums.MethodTransfer
	title := method.Title()
	if _, err := s.orders.UpdateOrder(ctx, order.ID, commerce.OrderPatch{
		PaymentMethod:      &method,
		PaymentMethodTitle: &title,
	}); err != nil {
		return nil, err
	}
	order.PaymentMethod = method
	order.PaymentMethodTitle = title

	updated, err := s.machine.Transition(ctx, order, enums.OrderStatusOnHold, lifecycle.TransitionOptions{})
	if err != nil {
		return nil, err
	}
	return s.state(updated), nil
}

// UploadReceipt stores the buyer's payment receipt, tags the order, and
// notifies operations. The mail carries the upload service's uuid for the
// stored file, so the upload must succeed before anything else moves.
func (s *Service) UploadReceipt(ctx context.Context, orderID int64, file uploads.File) (*State, error) {
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.MethodTransfer {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying by bank transfer")
	}
	if order.Status != enums.OrderStatusOnHold {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transfer flow has not been started")
	}

	stored, err := s.uploader.Upload(ctx, file)
	if err != nil {
		return nil, err
	}

	state := enums.LoanStateDocumentationUploaded
	note := state.Annotation()
	updated, err := s.orders.UpdateOrder(ctx, order.ID, commerce.OrderPatch{
		LoanState:    &state,
		CustomerNote: &note,
	})
	if err != nil {
		return nil, err
	}

	if s.notify.email != "" {
		params := map[string]string{
			"order_id":    fmt.Sprintf("%d", updated.ID),
			"order_key":   updated.OrderKey,
			"customer":    updated.Billing.Email,
			"upload_uuid": stored.UUID,
			"filename":    stored.Filename,
		}
		if err := s.mail.Send(ctx, s.notify.email, s.notify.name, params); err != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithOrderID(ctx, orderID), "receipt notification failed to send")
		}
	}

	return s.state(updated), nil
}

// Confirm moves a transfer the operator has matched on the bank statement
// into processing.
func (s *Service) Confirm(ctx context.Context, orderID int64) (*State, error) {
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != enums.MethodTransfer {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not paying by bank transfer")
	}

	state := enums.LoanStateTransferReceived
	updated, err := s.machine.Transition(ctx, order, enums.OrderStatusProcessing, lifecycle.TransitionOptions{
		LoanState: &state,
	})
	if err != nil {
		return nil, err
	}
	return s.state(updated), nil
}

// Abandon cancels the transfer attempt, restoring the order to a neutral
// method with a cleared note.
func (s *Service) Abandon(ctx context.Context, orderID int64) (*commerce.Order, error) {
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed to checkout")
	}
	return s.machine.Cancel(ctx, order)
}

func (s *Service) state(order *commerce.Order) *State {
	details := s.details
	details.Reference = order.OrderKey
	flow := stepflow.New(stepflow.InitialStep(order.LoanProgress()), details)
	return &State{Order: order, Step: flow.Current(), Details: flow.Details()}
}
