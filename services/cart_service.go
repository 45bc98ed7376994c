// cartstate/services/cart_service.go

package services

import (
	"context"

	"github.com/norun9/microservices-demo-ambient/src/cartstate/cartstore"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cartservice"

// CartService exposes the shared cart of a registry to hosts.
type CartService struct {
	registry *cartstore.Registry
	tracer   trace.Tracer
	log      logrus.FieldLogger
}

// Option configures a CartService.
type Option func(*CartService)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *CartService) {
		s.tracer = tp.Tracer(tracerName)
	}
}

// NewCartService creates a service with a registry and logger injected.
func NewCartService(registry *cartstore.Registry, logger logrus.FieldLogger, opts ...Option) *CartService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &CartService{
		registry: registry,
		tracer:   otel.Tracer(tracerName),
		log:      logger.WithField("component", "cartservice"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetCart returns the shared cart, creating it on first access.
func (s *CartService) GetCart(ctx context.Context) *cartstore.CartState {
	_, span := s.tracer.Start(ctx, "GetCart")
	defer span.End()

	cart := cartstore.UseCartStore(s.registry)
	span.SetAttributes(attribute.String("app.cart.session_id", cart.SessionID()))
	return cart
}

// AddItem adds an item to the shared cart.
func (s *CartService) AddItem(ctx context.Context, item cartstore.CartItem) error {
	_, span := s.tracer.Start(ctx, "AddItem")
	defer span.End()
	span.SetAttributes(
		attribute.String("app.product_id", item.ID),
		attribute.Int64("app.quantity", int64(item.Quantity)),
		attribute.Float64("app.price", item.Price),
	)

	cart := cartstore.UseCartStore(s.registry)
	if err := cart.AddItem(item); err != nil {
		s.fail(span, err, "rejected cart item")
		return errors.Wrap(err, "AddItem failed")
	}
	s.log.WithFields(logrus.Fields{
		"session_id": cart.SessionID(),
		"product_id": item.ID,
		"quantity":   item.Quantity,
	}).Debug("item added")
	return nil
}

// RemoveItem removes the line with the given ID.
func (s *CartService) RemoveItem(ctx context.Context, id string) error {
	_, span := s.tracer.Start(ctx, "RemoveItem")
	defer span.End()
	span.SetAttributes(attribute.String("app.product_id", id))

	cart := cartstore.UseCartStore(s.registry)
	if err := cart.RemoveItem(id); err != nil {
		s.fail(span, err, "could not remove cart item")
		return errors.Wrap(err, "RemoveItem failed")
	}
	s.log.WithFields(logrus.Fields{
		"session_id": cart.SessionID(),
		"product_id": id,
	}).Debug("item removed")
	return nil
}

// EmptyCart drops every item in the shared cart.
func (s *CartService) EmptyCart(ctx context.Context) {
	_, span := s.tracer.Start(ctx, "EmptyCart")
	defer span.End()

	cart := cartstore.UseCartStore(s.registry)
	cart.Empty()
	s.log.WithField("session_id", cart.SessionID()).Debug("cart emptied")
}

// CompletePurchase marks the purchase of the shared cart as finished.
func (s *CartService) CompletePurchase(ctx context.Context) {
	_, span := s.tracer.Start(ctx, "CompletePurchase")
	defer span.End()

	cart := cartstore.UseCartStore(s.registry)
	cart.SetPurchaseCompleted(true)
	span.SetAttributes(attribute.Int("app.cart.items", cart.Len()))
	s.log.WithField("session_id", cart.SessionID()).Debug("purchase completed")
}

// Snapshot returns a detached copy of the shared cart.
func (s *CartService) Snapshot(ctx context.Context) cartstore.Snapshot {
	_, span := s.tracer.Start(ctx, "Snapshot")
	defer span.End()

	return cartstore.UseCartStore(s.registry).Snapshot()
}

func (s *CartService) fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	s.log.WithError(err).Warn(msg)
}
