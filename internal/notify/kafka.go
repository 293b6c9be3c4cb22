// Package notify delivers order confirmations. The checkout path only ever
// publishes; actual email delivery happens in the notifier worker so a slow or
// down mail server can never touch the commit critical path.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	kafkax "github.com/shopcore/go-cart-checkout/internal/kafka"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// KafkaNotifier implements checkout.Notifier by publishing an OrderConfirmed
// event. Publish is buffered and async; it does not wait for the broker.
type KafkaNotifier struct {
	Producer *kafkax.Producer
	Service  string
}

func (n *KafkaNotifier) SendOrderConfirmation(_ context.Context, email, orderNumber string, total float64) error {
	ev := shop.Envelope{
		EventID:       uuid.NewString(),
		EventType:     shop.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.Service,
		CorrelationID: orderNumber,
		Payload: kafkax.MustMarshal(shop.OrderConfirmedPayload{
			OrderNumber: orderNumber,
			Email:       email,
			TotalAmount: total,
		}),
	}
	n.Producer.Publish(shop.PartitionKey(orderNumber), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(shop.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
	return nil
}
