package broker

import (
	"context"
	"fmt"
	"log/slog"
	"stock-service/app/domain"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type AmqpPublisher struct {
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
}

// NewAmqpPublisher declares a durable topic exchange and publishes with routing key stock.changed.
func NewAmqpPublisher(url, exchange string) (*AmqpPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AmqpPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

func (a *AmqpPublisher) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	msg, err := encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "[amqpPublisher] PublishStockChanged", "encode", err)
		return err
	}

	err = a.channel.PublishWithContext(ctx, a.exchange, domain.StockChangedSubject, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageKey(data),
		Timestamp:    time.Now(),
		Body:         msg,
	})
	if err != nil {
		slog.ErrorContext(ctx, "[amqpPublisher] PublishStockChanged", "PublishWithContext", err)
		return err
	}
	return nil
}

func (a *AmqpPublisher) Close() error {
	if err := a.channel.Close(); err != nil {
		return err
	}
	if a.conn != nil {
		return a.conn.Close()
	}
	return nil
}
