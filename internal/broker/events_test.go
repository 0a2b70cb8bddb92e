package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"basketbay/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func testProducer(w *recordingWriter, topic string) *Producer {
	p := NewProducer([]string{"localhost:9092"}, topic)
	p.writer = w
	return p
}

func TestPublishStampsBaseEvent(t *testing.T) {
	sw, cw := &recordingWriter{}, &recordingWriter{}
	ep := NewEventPublisher(testProducer(sw, "storefront"), testProducer(cw, "catalog"))

	err := ep.PublishOrderPlaced(context.Background(), &models.OrderPlacedEvent{
		CheckoutID:    "chk-1",
		OrderID:       "o1",
		PaymentMethod: models.PaymentMethodCashOnDelivery,
		TotalAmount:   330,
	})
	require.NoError(t, err)
	require.Len(t, sw.msgs, 1)
	assert.Empty(t, cw.msgs)
	assert.Equal(t, "checkout-chk-1", string(sw.msgs[0].Key))

	var got models.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(sw.msgs[0].Value, &got))
	assert.Equal(t, models.EventTypeOrderPlaced, got.EventType)
	assert.NotEmpty(t, got.EventID)
	assert.False(t, got.Timestamp.IsZero())
	assert.Equal(t, int64(330), got.TotalAmount)
}

func TestStockAdjustedGoesToCatalogTopic(t *testing.T) {
	sw, cw := &recordingWriter{}, &recordingWriter{}
	ep := NewEventPublisher(testProducer(sw, "storefront"), testProducer(cw, "catalog"))

	require.NoError(t, ep.PublishStockAdjusted(context.Background(), &models.StockAdjustedEvent{ProductID: "p1", Count: 4}))
	assert.Empty(t, sw.msgs)
	require.Len(t, cw.msgs, 1)
	assert.Equal(t, "product-p1", string(cw.msgs[0].Key))
}

func TestPublishWriteFailure(t *testing.T) {
	sw := &recordingWriter{err: errors.New("broker down")}
	ep := NewEventPublisher(testProducer(sw, "storefront"), testProducer(&recordingWriter{}, "catalog"))

	err := ep.PublishCheckoutStarted(context.Background(), &models.CheckoutStartedEvent{CheckoutID: "chk-1"})
	assert.Error(t, err)
}

func TestHandleStockAdjusted(t *testing.T) {
	eh := NewEventHandler()
	var got *models.StockAdjustedEvent
	eh.OnStockAdjusted(func(_ context.Context, e *models.StockAdjustedEvent) error {
		got = e
		return nil
	})

	value, err := json.Marshal(models.StockAdjustedEvent{
		BaseEvent: models.BaseEvent{EventID: "e1", EventType: models.EventTypeStockAdjusted},
		ProductID: "p1",
		Count:     7,
	})
	require.NoError(t, err)

	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
	require.NotNil(t, got)
	assert.Equal(t, models.ProductID("p1"), got.ProductID)
	assert.Equal(t, 7, got.Count)
}

func TestHandleIgnoresOtherEvents(t *testing.T) {
	eh := NewEventHandler()
	called := false
	eh.OnStockAdjusted(func(context.Context, *models.StockAdjustedEvent) error {
		called = true
		return nil
	})

	value := []byte(`{"event_id":"e1","event_type":"ORDER_PLACED"}`)
	require.NoError(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
	assert.False(t, called)
}

func TestHandleRejectsGarbage(t *testing.T) {
	eh := NewEventHandler()
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: []byte("nope")}))

	value := []byte(`{"event_id":"e1","event_type":"STOCK_ADJUSTED"}`)
	eh.OnStockAdjusted(func(context.Context, *models.StockAdjustedEvent) error { return nil })
	assert.Error(t, eh.HandleMessage(context.Background(), kafka.Message{Value: value}))
}
