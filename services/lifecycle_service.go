package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	aws_pkg "github.com/CyberAli-eng/LaCleoOmnia-auto/pkg/aws"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/providers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/repository"
	"go.uber.org/zap"
)

// EntityKind selects which entity table DispatchIfUnsent gates on.
type EntityKind string

const (
	KindCheckout EntityKind = "checkout"
	KindOrder    EntityKind = "order"
	KindCustomer EntityKind = "customer"
)

// CampaignLists holds the three campaign list ids. Each is independently
// optional; an empty id makes that campaign a no-op (skipped, gate stamped).
type CampaignLists struct {
	Abandoned string
	Upsell    string
	Welcome   string
}

// LifecycleService applies the entity state machine: webhook ingestion,
// checkout conversion on order arrival, and idempotent campaign dispatch.
type LifecycleService struct {
	checkouts   repository.CheckoutRepository
	orders      repository.OrderRepository
	customers   repository.CustomerRepository
	provider    providers.CampaignProvider
	lists       CampaignLists
	snsClient   aws_pkg.SNSPublisher
	snsTopicArn string
	logger      *zap.Logger
}

// NewLifecycleService creates a new LifecycleService. snsClient may be nil;
// lifecycle events are then simply not published.
func NewLifecycleService(
	checkouts repository.CheckoutRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	provider providers.CampaignProvider,
	lists CampaignLists,
	snsClient aws_pkg.SNSPublisher,
	snsTopicArn string,
	logger *zap.Logger,
) *LifecycleService {
	return &LifecycleService{
		checkouts:   checkouts,
		orders:      orders,
		customers:   customers,
		provider:    provider,
		lists:       lists,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		logger:      logger,
	}
}

// RecordCheckout normalizes and upserts a checkout webhook. Repeat events
// for the same checkout id overwrite the mutable fields and reset the status
// to pending. No campaign dispatch happens here; that is the scanner's job.
func (s *LifecycleService) RecordCheckout(ctx context.Context, wh *models.CheckoutWebhook) (*models.Checkout, error) {
	firstName, lastName := checkoutName(wh)

	checkout := &models.Checkout{
		CheckoutID:  wh.ID.String(),
		Email:       wh.Email,
		FirstName:   firstName,
		LastName:    lastName,
		RecoveryURL: wh.AbandonedCheckoutURL,
		CartValue:   parsePrice(wh.TotalPrice),
		Currency:    currencyOrDefault(wh.Currency),
	}

	if err := s.checkouts.Upsert(ctx, checkout); err != nil {
		return nil, fmt.Errorf("upsert checkout %s: %w", checkout.CheckoutID, err)
	}

	s.logger.Info("Checkout upserted",
		zap.String("checkout_id", checkout.CheckoutID),
		zap.String("email", checkout.Email),
	)
	return checkout, nil
}

// RecordOrder upserts the order, converts every pending checkout for the
// same email, and triggers the upsell campaign through the dispatch gate.
// Store errors propagate (the webhook source redelivers); dispatch failures
// never fail the order.
func (s *LifecycleService) RecordOrder(ctx context.Context, wh *models.OrderWebhook) (*models.Order, error) {
	order := &models.Order{
		OrderID:    wh.ID.String(),
		Email:      wh.Email,
		TotalPrice: parsePrice(wh.TotalPrice),
		Currency:   currencyOrDefault(wh.Currency),
	}

	if err := s.orders.Upsert(ctx, order); err != nil {
		return nil, fmt.Errorf("upsert order %s: %w", order.OrderID, err)
	}

	converted, err := s.checkouts.MarkConverted(ctx, order.Email, order.OrderID)
	if err != nil {
		return nil, fmt.Errorf("convert checkouts for %s: %w", order.Email, err)
	}
	s.logger.Info("Order recorded",
		zap.String("order_id", order.OrderID),
		zap.String("email", order.Email),
		zap.Int64("converted_checkouts", converted),
	)

	if converted > 0 {
		s.publishEvent(ctx, "order.converted", map[string]interface{}{
			"order_id":            order.OrderID,
			"email":               order.Email,
			"converted_checkouts": converted,
		})
	}

	if err := s.dispatchUpsell(ctx, order); err != nil {
		// Transient by policy: the next order event retries.
		s.logger.Error("Upsell dispatch failed (non-blocking)",
			zap.String("order_id", order.OrderID),
			zap.Error(err),
		)
	}

	return order, nil
}

// RecordCustomer upserts the customer and triggers the welcome campaign
// through the dispatch gate. Dispatch failures never fail the customer.
func (s *LifecycleService) RecordCustomer(ctx context.Context, wh *models.CustomerWebhook) (*models.Customer, error) {
	customer := &models.Customer{
		CustomerID: wh.ID.String(),
		Email:      wh.Email,
		FirstName:  wh.FirstName,
		LastName:   wh.LastName,
	}

	if err := s.customers.Upsert(ctx, customer); err != nil {
		return nil, fmt.Errorf("upsert customer %s: %w", customer.CustomerID, err)
	}
	s.logger.Info("Customer upserted",
		zap.String("customer_id", customer.CustomerID),
		zap.String("email", customer.Email),
	)

	err := s.DispatchIfUnsent(ctx, KindCustomer, customer.CustomerID, func(ctx context.Context) providers.Outcome {
		return s.provider.AddToList(ctx, s.lists.Welcome, providers.Prospect{
			Email:     customer.Email,
			FirstName: customer.FirstName,
			LastName:  customer.LastName,
		})
	})
	if err != nil {
		s.logger.Error("Welcome dispatch failed (non-blocking)",
			zap.String("customer_id", customer.CustomerID),
			zap.Error(err),
		)
	}

	return customer, nil
}

// MarkCheckoutAbandoned transitions a checkout to abandoned and publishes
// the lifecycle event.
func (s *LifecycleService) MarkCheckoutAbandoned(ctx context.Context, checkoutID string) error {
	if err := s.checkouts.MarkAbandoned(ctx, checkoutID); err != nil {
		return fmt.Errorf("mark checkout %s abandoned: %w", checkoutID, err)
	}
	s.logger.Info("Checkout marked as abandoned", zap.String("checkout_id", checkoutID))
	s.publishEvent(ctx, "checkout.abandoned", map[string]interface{}{
		"checkout_id": checkoutID,
	})
	return nil
}

// DispatchAbandoned runs the abandoned-cart campaign for a checkout through
// the dispatch gate, carrying the recovery context fields.
func (s *LifecycleService) DispatchAbandoned(ctx context.Context, checkout *models.Checkout) error {
	return s.DispatchIfUnsent(ctx, KindCheckout, checkout.CheckoutID, func(ctx context.Context) providers.Outcome {
		return s.provider.AddToList(ctx, s.lists.Abandoned, providers.Prospect{
			Email:     checkout.Email,
			FirstName: checkout.FirstName,
			LastName:  checkout.LastName,
			Fields: map[string]interface{}{
				"recovery_url": checkout.RecoveryURL,
				"cart_value":   checkout.CartValue,
				"currency":     checkout.Currency,
			},
		})
	})
}

// DispatchIfUnsent is the idempotency chokepoint shared by webhook handling
// and the abandonment scanner. It re-reads the entity, runs the dispatch
// only when the gate is still open, and stamps the gate on any terminal
// outcome. Transient outcomes leave the gate open for the next trigger.
func (s *LifecycleService) DispatchIfUnsent(ctx context.Context, kind EntityKind, id string, dispatch func(context.Context) providers.Outcome) error {
	var sentAt *time.Time
	var stamp func(time.Time) error

	switch kind {
	case KindCheckout:
		c, err := s.checkouts.FindByCheckoutID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload checkout %s: %w", id, err)
		}
		sentAt = c.CampaignSentAt
		stamp = func(t time.Time) error { return s.checkouts.MarkCampaignSent(ctx, id, t) }
	case KindOrder:
		o, err := s.orders.FindByOrderID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload order %s: %w", id, err)
		}
		sentAt = o.CampaignSentAt
		stamp = func(t time.Time) error { return s.orders.MarkCampaignSent(ctx, id, t) }
	case KindCustomer:
		c, err := s.customers.FindByCustomerID(ctx, id)
		if err != nil {
			return fmt.Errorf("reload customer %s: %w", id, err)
		}
		sentAt = c.CampaignSentAt
		stamp = func(t time.Time) error { return s.customers.MarkCampaignSent(ctx, id, t) }
	default:
		return fmt.Errorf("unknown entity kind %q", kind)
	}

	if sentAt != nil {
		s.logger.Info("Campaign already dispatched, skipping",
			zap.String("kind", string(kind)),
			zap.String("id", id),
		)
		return nil
	}

	outcome := dispatch(ctx)
	if !outcome.Terminal() {
		s.logger.Warn("Campaign dispatch transient failure, will retry on next trigger",
			zap.String("kind", string(kind)),
			zap.String("id", id),
			zap.String("reason", outcome.Reason),
			zap.Error(outcome.Err),
		)
		return nil
	}

	s.logger.Info("Campaign dispatch completed",
		zap.String("kind", string(kind)),
		zap.String("id", id),
		zap.String("outcome", string(outcome.Status)),
		zap.String("reason", outcome.Reason),
	)

	if err := stamp(time.Now()); err != nil {
		return fmt.Errorf("stamp dispatch gate for %s %s: %w", kind, id, err)
	}
	return nil
}

// dispatchUpsell triggers the upsell campaign for an order, borrowing the
// prospect name from the most recent checkout with the same email.
func (s *LifecycleService) dispatchUpsell(ctx context.Context, order *models.Order) error {
	return s.DispatchIfUnsent(ctx, KindOrder, order.OrderID, func(ctx context.Context) providers.Outcome {
		firstName, lastName := "", ""
		if checkout, err := s.checkouts.FindFirstByEmail(ctx, order.Email); err == nil {
			firstName, lastName = checkout.FirstName, checkout.LastName
		}
		return s.provider.AddToList(ctx, s.lists.Upsell, providers.Prospect{
			Email:     order.Email,
			FirstName: firstName,
			LastName:  lastName,
			Fields: map[string]interface{}{
				"order_value": order.TotalPrice,
				"currency":    order.Currency,
			},
		})
	})
}

// publishEvent publishes a lifecycle event to SNS, best-effort.
func (s *LifecycleService) publishEvent(ctx context.Context, eventType string, payload map[string]interface{}) {
	if s.snsClient == nil || s.snsTopicArn == "" {
		return
	}
	payload["event_type"] = eventType
	payload["timestamp"] = time.Now().UTC().Format(time.RFC3339)

	msg, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to marshal lifecycle event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.snsTopicArn, msg); err != nil {
		s.logger.Warn("SNS publish failed", zap.String("event_type", eventType), zap.Error(err))
	}
}

// ---- normalization helpers ----

func checkoutName(wh *models.CheckoutWebhook) (string, string) {
	if wh.Customer != nil && (wh.Customer.FirstName != "" || wh.Customer.LastName != "") {
		return wh.Customer.FirstName, wh.Customer.LastName
	}
	if wh.BillingAddress != nil {
		return wh.BillingAddress.FirstName, wh.BillingAddress.LastName
	}
	return "", ""
}

func parsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

func currencyOrDefault(currency string) string {
	if currency == "" {
		return models.DefaultCurrency
	}
	return currency
}
