package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/stripe/stripe-go/v84"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

const orderIDMetadataKey = "order_id"

type orderClient interface {
	GetOrder(ctx context.Context, orderID int64) (*commerce.Order, error)
}

type transitioner interface {
	Transition(ctx context.Context, order *commerce.Order, to enums.OrderStatus, opts lifecycle.TransitionOptions) (*commerce.Order, error)
}

// Service applies processor intent events to the order lifecycle.
type Service struct {
	orders  orderClient
	machine transitioner
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger
}

// NewService builds the webhook event handler.
func NewService(orders orderClient, machine transitioner, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine required")
	}
	return &Service{orders: orders, machine: machine, metrics: checkoutMetrics, logg: logg}, nil
}

// HandleEvent dispatches one verified event. Event types outside the intent
// lifecycle are acknowledged and skipped; the processor must not retry them.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event required")
	}

	switch event.Type {
	case "payment_intent.succeeded":
		return s.applyIntentEvent(ctx, event, s.handleSucceeded)
	case "payment_intent.amount_capturable_updated":
		return s.applyIntentEvent(ctx, event, s.handleCapturable)
	case "payment_intent.payment_failed":
		return s.applyIntentEvent(ctx, event, s.handleFailed)
	default:
		if s.logg != nil {
			s.logg.Info(s.logg.WithField(ctx, "event_type", string(event.Type)), "webhook event skipped")
		}
		s.metrics.IncWebhook(string(event.Type), "skipped")
		return nil
	}
}

func (s *Service) applyIntentEvent(ctx context.Context, event *stripe.Event, apply func(context.Context, *commerce.Order, *stripe.PaymentIntent) error) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		s.metrics.IncWebhook(string(event.Type), "malformed")
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode intent payload")
	}

	orderID, err := orderIDFromIntent(&intent)
	if err != nil {
		s.metrics.IncWebhook(string(event.Type), "malformed")
		return err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		s.metrics.IncWebhook(string(event.Type), "error")
		return err
	}

	if s.logg != nil {
		ctx = s.logg.WithOrderID(ctx, orderID)
	}
	if err := apply(ctx, order, &intent); err != nil {
		s.metrics.IncWebhook(string(event.Type), "error")
		return err
	}
	s.metrics.IncWebhook(string(event.Type), "ok")
	return nil
}

// handleSucceeded settles a captured payment: the order moves through
// processing into completed. Orders already completed are a no-op, which
// keeps redelivered events harmless even past the idempotency window.
func (s *Service) handleSucceeded(ctx context.Context, order *commerce.Order, _ *stripe.PaymentIntent) error {
	if order.Status == enums.OrderStatusCompleted {
		return nil
	}
	if order.Status != enums.OrderStatusProcessing {
		moved, err := s.machine.Transition(ctx, order, enums.OrderStatusProcessing, lifecycle.TransitionOptions{})
		if err != nil {
			return err
		}
		order = moved
	}
	_, err := s.machine.Transition(ctx, order, enums.OrderStatusCompleted, lifecycle.TransitionOptions{})
	return err
}

// handleCapturable parks a deferred-capture payment on hold, annotating the
// order with the collected deposit share.
func (s *Service) handleCapturable(ctx context.Context, order *commerce.Order, intent *stripe.PaymentIntent) error {
	if intent.Status != stripe.PaymentIntentStatusRequiresCapture {
		return nil
	}
	if order.Status == enums.OrderStatusOnHold {
		return nil
	}

	opts := lifecycle.TransitionOptions{}
	if intent.Amount > 0 && intent.AmountCapturable > 0 && intent.AmountCapturable < intent.Amount {
		opts.DepositPercent = int(intent.AmountCapturable * 100 / intent.Amount)
	}
	_, err := s.machine.Transition(ctx, order, enums.OrderStatusOnHold, opts)
	return err
}

// handleFailed records a terminal processor rejection. The buyer's recovery
// path is RetryAfterFailure, never a re-charge of the same intent.
func (s *Service) handleFailed(ctx context.Context, order *commerce.Order, _ *stripe.PaymentIntent) error {
	if order.Status == enums.OrderStatusFailed {
		return nil
	}
	_, err := s.machine.Transition(ctx, order, enums.OrderStatusFailed, lifecycle.TransitionOptions{})
	return err
}

func orderIDFromIntent(intent *stripe.PaymentIntent) (int64, error) {
	raw, ok := intent.Metadata[orderIDMetadataKey]
	if !ok || raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "intent carries no order reference")
	}
	orderID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || orderID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "intent carries a malformed order reference")
	}
	return orderID, nil
}
