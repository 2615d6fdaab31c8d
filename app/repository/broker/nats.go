package broker

import (
	"context"
	"errors"
	"log/slog"
	"stock-service/app/domain"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

type stockBroker struct {
	js jetstream.JetStream
}

func NewStockBrokerPublisher(stream jetstream.JetStream) domain.BrokerPublisher {
	return &stockBroker{
		js: stream,
	}
}

// EnsureStream creates the stream capturing the stock subjects if it does not exist.
// The stream name is free; the subjects are fixed by what PublishStockChanged sends.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name string) error {
	_, err := js.CreateStream(ctx, jetstream.StreamConfig{
		Name:     strings.ToUpper(name),
		Subjects: []string{domain.StockChangedSubject},
		Storage:  jetstream.FileStorage,
	})
	if err != nil && !errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
		return err
	}
	return nil
}

func (s *stockBroker) PublishStockChanged(ctx context.Context, data domain.StockMessage) error {
	msg, err := encode(data)
	if err != nil {
		slog.ErrorContext(ctx, "[stockBroker] PublishStockChanged", "encode", err)
		return err
	}

	if _, err = s.js.Publish(ctx, domain.StockChangedSubject, msg); err != nil {
		slog.ErrorContext(ctx, "[stockBroker] PublishStockChanged", "Publish", err)
		return err
	}

	slog.InfoContext(ctx, "[stockBroker] PublishStockChanged", "message", string(msg))
	return nil
}
