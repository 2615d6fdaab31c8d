package broker

import (
	"context"
	"log/slog"
	"stock-service/app/domain"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: writer}
}

func (k *KafkaPublisher) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	msg, err := encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "[kafkaPublisher] PublishStockChanged", "encode", err)
		return err
	}

	err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(messageKey(data)),
		Value: msg,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "subject", Value: []byte(domain.StockChangedSubject)},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "[kafkaPublisher] PublishStockChanged", "WriteMessages", err)
		return err
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}
