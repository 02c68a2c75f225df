package amqp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"
)

// SummaryHandler processes one summary.refreshed event.
type SummaryHandler func(ctx context.Context, msg *SummaryRefreshedMessage) error

// ErrDeliveriesClosed is returned by ConsumeSummaries when the broker
// closes the delivery channel.
var ErrDeliveriesClosed = errors.New("amqp delivery channel closed")

// ConsumeSummaries delivers summary events from the client's queue to
// handler until ctx is done. Undecodable messages are dropped; messages the
// handler fails on are requeued once.
func (c *Client) ConsumeSummaries(ctx context.Context, handler SummaryHandler) error {
	if c.queueName == "" {
		return errors.New("no queue configured for consuming")
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errNotConnected
	}

	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming summary events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			c.handleDelivery(ctx, d, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler SummaryHandler) {
	if d.Type != "" && d.Type != MessageTypeSummaryRefreshed {
		c.logger.WarnContext(ctx, "Dropping message of unexpected type", "type", d.Type, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	msg, err := SummaryRefreshedMessageFromJSON(d.Body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to unmarshal message", "error", err, "message_id", d.MessageId)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, msg); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle message", "error", err, "message_id", msg.ID)
		_ = d.Nack(false, !d.Redelivered)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.WarnContext(ctx, "Failed to ack message", "error", err, "message_id", msg.ID)
		return
	}
	c.logger.DebugContext(ctx, "Processed summary event", "message_id", msg.ID)
}
