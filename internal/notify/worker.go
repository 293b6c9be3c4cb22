package notify

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	kafkax "github.com/shopcore/go-cart-checkout/internal/kafka"
	"github.com/shopcore/go-cart-checkout/internal/redisx"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Worker consumes OrderConfirmed events and sends the confirmation email.
// Delivery is at-least-once from Kafka; the Redis dedup key keeps a redelivery
// from mailing the buyer twice.
type Worker struct {
	Redis       *redis.Client
	Mailer      Sender
	ServiceName string
}

// HandleOrderConfirmed is installed as the consumer handler.
func (w *Worker) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	var env shop.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != shop.EventOrderConfirmed {
		return nil // ignore
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "notifier", env.EventID)
	if exists, _ := redisx.Exists(ctx, w.Redis, dkey); exists {
		return nil
	}

	p, err := kafkax.UnwrapPayload[shop.OrderConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	if err := w.Mailer.Send(p.Email, p.OrderNumber, p.TotalAmount); err != nil {
		// Notification failure never propagates to the order; log and commit.
		log.Printf("confirmation email for %s failed: %v", p.OrderNumber, err)
		return nil
	}

	_ = w.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}
