package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"basketbay/internal/models"
	"basketbay/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

func newBase(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// EventPublisher publishes storefront and catalog domain events
type EventPublisher struct {
	storefront *Producer
	catalog    *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(storefront, catalog *Producer) *EventPublisher {
	return &EventPublisher{storefront: storefront, catalog: catalog}
}

func checkoutKey(id string) string {
	return "checkout-" + id
}

// PublishCheckoutStarted publishes CHECKOUT_STARTED
func (ep *EventPublisher) PublishCheckoutStarted(ctx context.Context, event *models.CheckoutStartedEvent) error {
	event.BaseEvent = newBase(models.EventTypeCheckoutStarted)
	return ep.storefront.PublishEvent(ctx, checkoutKey(event.CheckoutID), event)
}

// PublishCheckoutCancelled publishes CHECKOUT_CANCELLED
func (ep *EventPublisher) PublishCheckoutCancelled(ctx context.Context, event *models.CheckoutCancelledEvent) error {
	event.BaseEvent = newBase(models.EventTypeCheckoutCancelled)
	return ep.storefront.PublishEvent(ctx, checkoutKey(event.CheckoutID), event)
}

// PublishOrderPlaced publishes ORDER_PLACED
func (ep *EventPublisher) PublishOrderPlaced(ctx context.Context, event *models.OrderPlacedEvent) error {
	event.BaseEvent = newBase(models.EventTypeOrderPlaced)
	return ep.storefront.PublishEvent(ctx, checkoutKey(event.CheckoutID), event)
}

// PublishOrderSubmissionFailed publishes ORDER_SUBMISSION_FAILED
func (ep *EventPublisher) PublishOrderSubmissionFailed(ctx context.Context, event *models.OrderSubmissionFailedEvent) error {
	event.BaseEvent = newBase(models.EventTypeOrderSubmissionFailed)
	return ep.storefront.PublishEvent(ctx, checkoutKey(event.CheckoutID), event)
}

// PublishStockAdjusted publishes STOCK_ADJUSTED on the catalog topic
func (ep *EventPublisher) PublishStockAdjusted(ctx context.Context, event *models.StockAdjustedEvent) error {
	event.BaseEvent = newBase(models.EventTypeStockAdjusted)
	return ep.catalog.PublishEvent(ctx, fmt.Sprintf("product-%s", event.ProductID), event)
}

// EventHandler routes incoming catalog events
type EventHandler struct {
	onStockAdjusted func(context.Context, *models.StockAdjustedEvent) error
	logger          *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnStockAdjusted registers a handler for STOCK_ADJUSTED events
func (eh *EventHandler) OnStockAdjusted(handler func(context.Context, *models.StockAdjustedEvent) error) {
	eh.onStockAdjusted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	eh.logger.Debug("Handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeStockAdjusted:
		if eh.onStockAdjusted != nil {
			var event models.StockAdjustedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockAdjusted event: %w", err)
			}
			if event.ProductID == "" {
				return fmt.Errorf("StockAdjusted event %s has no product id", baseEvent.EventID)
			}
			return eh.onStockAdjusted(ctx, &event)
		}

	default:
		eh.logger.Debug("Unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
