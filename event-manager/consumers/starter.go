package consumers

import (
	"context"
	"time"

	"github.com/Vinubaba/TOUCH-API/messaging"
	"github.com/Vinubaba/TOUCH-API/shared"

	"github.com/pkg/errors"
)

type EventHandler interface {
	CanHandle(event messaging.Event) bool
	Handle(ctx context.Context, event messaging.Event) error
	Name() string
}

type Consumer struct {
	Logger       *shared.Logger `inject:""`
	PubSubClient interface {
		Subscribe(ctx context.Context, callback messaging.SubscribeCallbackFunc) error
	} `inject:""`
	EventHandlers []EventHandler
}

func (c *Consumer) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			c.Logger.Info(ctx, "starting consumer")
			if err := c.PubSubClient.Subscribe(ctx, c.Consume); err != nil {
				c.Logger.Warn(ctx, "Consumer stopped", "err", errors.Wrap(err, "failed to subscribe to the messaging system"))
				time.Sleep(time.Second)
			}
		}
	}
}

// Consume acknowledges the message and gives it to the first handler able to process it.
func (c *Consumer) Consume(ctx context.Context, msg messaging.Message) {
	msg.Ack()

	event, err := messaging.DecodeEvent(msg)
	if err != nil {
		c.Logger.Err(ctx, "failed to decode the message", "err", err, "messageId", msg.ID)
		return
	}

	for _, eventHandler := range c.EventHandlers {
		if eventHandler.CanHandle(event) {
			if err := eventHandler.Handle(ctx, event); err != nil {
				c.Logger.Err(ctx, "failed to handle message", "err", err, "messageId", msg.ID, "handler", eventHandler.Name())
			} else {
				c.Logger.Info(ctx, "message successfully handled !", "messageId", msg.ID, "handler", eventHandler.Name())
			}
			return
		}
	}
	c.Logger.Warn(ctx, "no handlers were able to consume this message", "messageId", msg.ID, "type", event.Type)
}
