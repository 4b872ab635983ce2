package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

type orderUpdater interface {
	UpdateOrder(ctx context.Context, orderID int64, patch commerce.OrderPatch) (*commerce.Order, error)
}

type trackingCleaner interface {
	ClearTracking(ctx context.Context, orderID int64) error
}

// Machine drives order lifecycle transitions. Every transition performs the
// remote PATCH first and surfaces the updated order only on success; a failed
// PATCH leaves the caller's snapshot untouched.
type Machine struct {
	orders   orderUpdater
	tracking trackingCleaner
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// TransitionOptions carries the side data some transitions attach.
type TransitionOptions struct {
	// Note replaces the order's display annotation.
	Note *string
	// LoanState advances the structured financing tag.
	LoanState *enums.LoanState
	// DepositPercent annotates capture-deferred loans parked on hold.
	DepositPercent int
}

// NewMachine builds the lifecycle machine.
func NewMachine(orders orderUpdater, tracking trackingCleaner, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (*Machine, error) {
	if orders == nil {
		return nil, fmt.Errorf("order updater required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking cleaner required")
	}
	return &Machine{
		orders:   orders,
		tracking: tracking,
		metrics:  checkoutMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Transition moves the order to the target status. Same-status calls are
// idempotent no-ops. Disallowed moves return a state conflict before any
// remote call.
func (m *Machine) Transition(ctx context.Context, order *commerce.Order, to enums.OrderStatus, opts TransitionOptions) (*commerce.Order, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if !to.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if order.Status == to {
		return order, nil
	}
	if !CanTransition(order.Status, to) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order cannot move from %s to %s", order.Status, to)).
			WithDetails(map[string]any{"from": order.Status.String(), "to": to.String()})
	}

	patch := m.buildPatch(order, to, opts)
	updated, err := m.orders.UpdateOrder(ctx, order.ID, patch)
	if err != nil {
		return nil, err
	}

	m.metrics.IncTransition(order.Status.String(), to.String())
	if m.logg != nil {
		logCtx := m.logg.WithOrderID(ctx, order.ID)
		logCtx = m.logg.WithFields(logCtx, map[string]any{"from": order.Status.String(), "to": to.String()})
		m.logg.Info(logCtx, "order.transition")
	}

	if to == enums.OrderStatusCompleted {
		// Dropping the resume-checkout marker is mandatory; a leftover key
		// would keep prompting the buyer to finish a paid order.
		if err := m.tracking.ClearTracking(ctx, order.ID); err != nil && m.logg != nil {
			m.logg.Warn(m.logg.WithOrderID(ctx, order.ID), "failed to clear checkout tracking key")
		}
	}

	return updated, nil
}

// Cancel aborts the order from any non-terminal state, restoring the neutral
// method sentinel and clearing annotations so the order can be re-entered
// cleanly if ever reopened.
func (m *Machine) Cancel(ctx context.Context, order *commerce.Order) (*commerce.Order, error) {
	return m.Transition(ctx, order, enums.OrderStatusCancelled, TransitionOptions{})
}

// RetryAfterFailure resets a failed order to on-hold with a neutral method,
// the offered recovery path after a terminal processor rejection. The prior
// charge is never re-attempted.
func (m *Machine) RetryAfterFailure(ctx context.Context, order *commerce.Order) (*commerce.Order, error) {
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.Status != enums.OrderStatusFailed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only failed orders can be retried")
	}
	return m.Transition(ctx, order, enums.OrderStatusOnHold, TransitionOptions{})
}

func (m *Machine) buildPatch(order *commerce.Order, to enums.OrderStatus, opts TransitionOptions) commerce.OrderPatch {
	patch := commerce.OrderPatch{Status: &to}

	switch to {
	case enums.OrderStatusCompleted:
		completedAt := m.now().UTC()
		patch.DateCompleted = &completedAt
	case enums.OrderStatusCancelled:
		neutral := enums.MethodNone
		neutralTitle := ""
		emptyNote := ""
		notRequested := enums.LoanStateNotRequested
		patch.PaymentMethod = &neutral
		patch.PaymentMethodTitle = &neutralTitle
		patch.CustomerNote = &emptyNote
		patch.LoanState = &notRequested
		return patch
	case enums.OrderStatusOnHold:
		if order.Status == enums.OrderStatusProcessing && opts.DepositPercent > 0 {
			// Capture-deferred loans park on hold with the collected deposit
			// recorded on the order.
			note := fmt.Sprintf("Acconto del %d%% incassato, saldo alla consegna", opts.DepositPercent)
			patch.CustomerNote = &note
		}
		if order.Status == enums.OrderStatusFailed {
			neutral := enums.MethodNone
			neutralTitle := ""
			notRequested := enums.LoanStateNotRequested
			patch.PaymentMethod = &neutral
			patch.PaymentMethodTitle = &neutralTitle
			patch.LoanState = &notRequested
		}
	}

	if opts.Note != nil {
		patch.CustomerNote = opts.Note
	}
	if opts.LoanState != nil {
		patch.LoanState = opts.LoanState
	}
	return patch
}
