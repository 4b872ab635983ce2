package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/intents"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

const trackingTTL = 7 * 24 * time.Hour

type orderClient interface {
	GetOrder(ctx context.Context, orderID int64) (*commerce.Order, error)
	UpdateOrder(ctx context.Context, orderID int64, patch commerce.OrderPatch) (*commerce.Order, error)
}

type intentClient interface {
	Create(ctx context.Context, orderKey string, method enums.PaymentMethod) (*intents.PaymentIntent, error)
	Update(ctx context.Context, orderKey string, method enums.PaymentMethod) (*intents.PaymentIntent, error)
}

type methodResolver interface {
	Resolve(order *commerce.Order, mode enums.CheckoutMode) []enums.PaymentMethod
	Eligible(order *commerce.Order, mode enums.CheckoutMode, method enums.PaymentMethod) bool
}

type feeCalculator interface {
	ReverseSubtotal(order *commerce.Order) decimal.Decimal
	ArtPayFee(order *commerce.Order) decimal.Decimal
	KlarnaFee(order *commerce.Order) decimal.Decimal
	TotalFee(order *commerce.Order) decimal.Decimal
}

type tracker interface {
	SetTracking(ctx context.Context, orderID int64, value string, ttl time.Duration) error
}

// Selection is the consistent (order, intent) pair a successful method
// selection yields.
type Selection struct {
	Order  *commerce.Order
	Intent *intents.PaymentIntent
}

// Summary is the read model the storefront renders before and during method
// selection. Amounts are rendered strings; the fee math itself never rounds.
type Summary struct {
	OrderID         int64
	Total           string
	Subtotal        string
	ArtPayFee       string
	KlarnaFee       string
	CombinedFee     string
	EligibleMethods []enums.PaymentMethod
	SelectedMethod  enums.PaymentMethod
	Stage           enums.PaymentStage
}

// Service keeps exactly one live payment intent per order, synchronized with
// the processor and the commerce backend.
type Service struct {
	orders   orderClient
	intents  intentClient
	resolver methodResolver
	fees     feeCalculator
	tracking tracker
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger

	mu         sync.Mutex
	liveIntent map[int64]*intents.PaymentIntent
	inFlight   map[int64]struct{}
}

// NewService builds the checkout synchronizer.
func NewService(
	orders orderClient,
	intentCli intentClient,
	resolver methodResolver,
	fees feeCalculator,
	tracking tracker,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if intentCli == nil {
		return nil, fmt.Errorf("intent client required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("eligibility resolver required")
	}
	if fees == nil {
		return nil, fmt.Errorf("fee calculator required")
	}
	if tracking == nil {
		return nil, fmt.Errorf("tracking store required")
	}
	return &Service{
		orders:     orders,
		intents:    intentCli,
		resolver:   resolver,
		fees:       fees,
		tracking:   tracking,
		metrics:    checkoutMetrics,
		logg:       logg,
		liveIntent: map[int64]*intents.PaymentIntent{},
		inFlight:   map[int64]struct{}{},
	}, nil
}

// Summarize computes the checkout read model from a fresh order load.
func (s *Service) Summarize(ctx context.Context, orderID int64, mode enums.CheckoutMode) (*Summary, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.summarize(order, mode), nil
}

func (s *Service) summarize(order *commerce.Order, mode enums.CheckoutMode) *Summary {
	subtotal := s.fees.ReverseSubtotal(order)
	return &Summary{
		OrderID:         order.ID,
		Total:           order.Total,
		Subtotal:        subtotal.StringFixed(2),
		ArtPayFee:       s.fees.ArtPayFee(order).StringFixed(2),
		KlarnaFee:       s.fees.KlarnaFee(order).StringFixed(2),
		CombinedFee:     s.fees.TotalFee(order).StringFixed(2),
		EligibleMethods: s.resolver.Resolve(order, mode),
		SelectedMethod:  order.PaymentMethod,
		Stage:           lifecycle.StageFor(order.Status, order.PaymentMethod, order.LoanProgress()),
	}
}

// SelectMethod points the order's single live intent at the chosen method,
// then records the method on the order. Both remote writes are sequential
// and idempotent; local state changes only after both succeed, so a failure
// at either step leaves the previous (order, intent) pair intact and the
// whole call safely retryable.
func (s *Service) SelectMethod(ctx context.Context, orderID int64, method enums.PaymentMethod, mode enums.CheckoutMode) (*Selection, error) {
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	if err := s.acquire(orderID); err != nil {
		return nil, err
	}
	defer s.release(orderID)

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		s.metrics.IncSelection(method.String(), "error")
		return nil, err
	}
	if order.Status == enums.OrderStatusFailed {
		// The processor rejected the previous attempt. Surfaced under its
		// own code so the storefront can offer the retry path.
		s.metrics.IncSelection(method.String(), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment for this order failed")
	}
	if order.Status.IsTerminal() {
		s.metrics.IncSelection(method.String(), "rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is closed to checkout")
	}
	if !s.resolver.Eligible(order, mode, method) {
		s.metrics.IncSelection(method.String(), "ineligible")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method not eligible for this amount").
			WithDetails(map[string]any{"method": method.String(), "total": order.Total})
	}

	// Step 1: sync the processor. An existing intent is updated in place so
	// two live intents never exist for one order.
	intent, err := s.syncIntent(ctx, order, method)
	if err != nil {
		s.metrics.IncSelection(method.String(), "error")
		return nil, err
	}

	// Step 2: record the method on the order. The order's method must never
	// get ahead of an intent the processor has not acknowledged, so this
	// runs strictly after step 1.
	title := method.Title()
	updated, err := s.orders.UpdateOrder(ctx, order.ID, commerce.OrderPatch{
		PaymentMethod:      &method,
		PaymentMethodTitle: &title,
	})
	if err != nil {
		// Intent acknowledged, order patch failed: a retry re-issues both
		// idempotently. Local state stays on the previous pair.
		s.metrics.IncSelection(method.String(), "error")
		return nil, err
	}

	s.setLiveIntent(orderID, intent)
	if err := s.tracking.SetTracking(ctx, orderID, method.String(), trackingTTL); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithOrderID(ctx, orderID), "failed to set checkout tracking key")
	}
	s.metrics.IncSelection(method.String(), "ok")

	return &Selection{Order: updated, Intent: intent}, nil
}

// CancelSelection returns the order to the undecided state: the intent is
// re-pointed at the neutral sentinel, the order's method is cleared, and the
// local intent reference is dropped.
func (s *Service) CancelSelection(ctx context.Context, orderID int64) (*commerce.Order, error) {
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

	if s.getLiveIntent(orderID) != nil {
		if _, err := s.intents.Update(ctx, order.OrderKey, enums.MethodNone); err != nil {
			return nil, err
		}
	}

	neutral := enums.MethodNone
	neutralTitle := ""
	updated, err := s.orders.UpdateOrder(ctx, order.ID, commerce.OrderPatch{
		PaymentMethod:      &neutral,
		PaymentMethodTitle: &neutralTitle,
	})
	if err != nil {
		return nil, err
	}

	s.setLiveIntent(orderID, nil)
	s.metrics.IncSelection("none", "cancelled")
	return updated, nil
}

// LiveIntent exposes the current intent for an order, if any.
func (s *Service) LiveIntent(orderID int64) *intents.PaymentIntent {
	return s.getLiveIntent(orderID)
}

func (s *Service) syncIntent(ctx context.Context, order *commerce.Order, method enums.PaymentMethod) (*intents.PaymentIntent, error) {
	if s.getLiveIntent(order.ID) != nil {
		return s.intents.Update(ctx, order.OrderKey, method)
	}
	return s.intents.Create(ctx, order.OrderKey, method)
}

// acquire guards against re-entrant triggers (double-clicks) on the same
// order while a mutation is in flight.
func (s *Service) acquire(orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return pkgerrors.New(pkgerrors.CodeConflict, "a selection is already in progress for this order")
	}
	s.inFlight[orderID] = struct{}{}
	return nil
}

func (s *Service) release(orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderID)
}

func (s *Service) getLiveIntent(orderID int64) *intents.PaymentIntent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveIntent[orderID]
}

func (s *Service) setLiveIntent(orderID int64, intent *intents.PaymentIntent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if intent == nil {
		delete(s.liveIntent, orderID)
		return
	}
	s.liveIntent[orderID] = intent
}
