package quotes

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/davidebenetti/artpay-checkout/internal/commerce"
	"github.com/davidebenetti/artpay-checkout/internal/lifecycle"
	"github.com/davidebenetti/artpay-checkout/pkg/enums"
	pkgerrors "github.com/davidebenetti/artpay-checkout/pkg/errors"
	"github.com/davidebenetti/artpay-checkout/pkg/logger"
	"github.com/davidebenetti/artpay-checkout/pkg/metrics"
)

type orderClient interface {
	GetOrderByKey(ctx context.Context, orderKey, email string) (*commerce.Order, error)
}

type transitioner interface {
	Transition(ctx context.Context, order *commerce.Order, to enums.OrderStatus, opts lifecycle.TransitionOptions) (*commerce.Order, error)
	Cancel(ctx context.Context, order *commerce.Order) (*commerce.Order, error)
}

// Service resolves and settles seller quotes. A quote link carries only the
// (order key, email) pair; possession of both is the whole credential.
type Service struct {
	orders  orderClient
	machine transitioner
	metrics *metrics.CheckoutMetrics
	logg    *logger.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService builds the quote service.
func NewService(orders orderClient, machine transitioner, checkoutMetrics *metrics.CheckoutMetrics, logg *logger.Logger) (*Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("order client required")
	}
	if machine == nil {
		return nil, fmt.Errorf("lifecycle machine required")
	}
	return &Service{
		orders:   orders,
		machine:  machine,
		metrics:  checkoutMetrics,
		logg:     logg,
		inFlight: map[string]struct{}{},
	}, nil
}

// Load fetches the quote behind a link. Anything that is no longer in the
// quote status reads as expired, regardless of how it left that status.
func (s *Service) Load(ctx context.Context, orderKey, email string) (*commerce.Order, error) {
	order, err := s.fetch(ctx, orderKey, email)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Accept turns the quote into a pending order, opening it up for checkout.
// Accepting the same quote twice is a conflict, not a second transition.
func (s *Service) Accept(ctx context.Context, orderKey, email string) (*commerce.Order, error) {
	return s.settle(ctx, orderKey, email, enums.OrderStatusPending)
}

// Reject cancels the quoted order outright.
func (s *Service) Reject(ctx context.Context, orderKey, email string) (*commerce.Order, error) {
	return s.settle(ctx, orderKey, email, enums.OrderStatusCancelled)
}

func (s *Service) settle(ctx context.Context, orderKey, email string, to enums.OrderStatus) (*commerce.Order, error) {
	if err := s.acquire(orderKey); err != nil {
		return nil, err
	}
	defer s.release(orderKey)

	order, err := s.fetch(ctx, orderKey, email)
	if err != nil {
		return nil, err
	}

	var updated *commerce.Order
	if to == enums.OrderStatusCancelled {
		updated, err = s.machine.Cancel(ctx, order)
	} else {
		updated, err = s.machine.Transition(ctx, order, to, lifecycle.TransitionOptions{})
	}
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransition(enums.OrderStatusQuote.String(), to.String())
	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, updated.ID), "quote settled")
	}
	return updated, nil
}

func (s *Service) fetch(ctx context.Context, orderKey, email string) (*commerce.Order, error) {
	if strings.TrimSpace(orderKey) == "" || strings.TrimSpace(email) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order key and email are required")
	}
	order, err := s.orders.GetOrderByKey(ctx, orderKey, email)
	if err != nil {
		return nil, err
	}
	if order.Status != enums.OrderStatusQuote {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "this quote is no longer available")
	}
	return order, nil
}

// acquire guards one settlement per quote link at a time; a double submit
// from two tabs gets a conflict instead of a second transition.
func (s *Service) acquire(orderKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderKey]; busy {
		return pkgerrors.New(pkgerrors.CodeConflict, "this quote is already being processed")
	}
	s.inFlight[orderKey] = struct{}{}
	return nil
}

func (s *Service) release(orderKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, orderKey)
}
