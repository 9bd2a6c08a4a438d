package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"rideshare-service/internal/config"
	"rideshare-service/internal/models"
	"rideshare-service/internal/ws"

	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the ingestor uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink delivers decoded events to live connections.
type Sink interface {
	ToChannel(ctx context.Context, channelID uint, e ws.Event) (ws.Delivery, error)
	ToChannelExcept(ctx context.Context, channelID uint, e ws.Event, excludeUserID uint) (ws.Delivery, error)
	ToUser(ctx context.Context, userID uint, e ws.Event) (ws.Delivery, error)
	DropChannel(channelID uint)
}

// NotificationCreator persists a notification and pushes it to its user.
type NotificationCreator interface {
	Create(ctx context.Context, req *models.CreateNotificationRequest) (*models.NotificationResponse, error)
}

var errNoTarget = errors.New("event has no target")

func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		GroupID:  cfg.IngestGroup,
		Topic:    cfg.IngestTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}

// Ingestor reads envelopes published by other services (ride updates, payment
// receipts) and broadcasts them. Notifications are stored before they are pushed.
type Ingestor struct {
	reader        MessageReader
	sink          Sink
	notifications NotificationCreator
}

func NewIngestor(reader MessageReader, sink Sink, notifications NotificationCreator) *Ingestor {
	return &Ingestor{reader: reader, sink: sink, notifications: notifications}
}

// Run consumes until ctx is cancelled. Records that cannot be handled are logged
// and committed so one bad record does not stall the partition.
func (i *Ingestor) Run(ctx context.Context) error {
	slog.Info("Kafka ingest started")
	for {
		msg, err := i.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("Kafka ingest stopped")
				return nil
			}
			return fmt.Errorf("failed to fetch message: %w", err)
		}

		if err := i.handle(ctx, msg.Value); err != nil {
			slog.Warn("Dropping ingested record", "topic", msg.Topic, "partition", msg.Partition,
				"offset", msg.Offset, "error", err)
		}

		if err := i.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("Failed to commit offset", "offset", msg.Offset, "error", err)
		}
	}
}

func (i *Ingestor) handle(ctx context.Context, value []byte) error {
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("malformed envelope: %w", err)
	}
	if connectionLocal(env.Type) {
		return fmt.Errorf("event type %q cannot be ingested", env.Type)
	}
	e, err := env.Event()
	if err != nil {
		return err
	}

	if n, ok := e.(ws.Notification); ok && i.notifications != nil {
		if env.Target.UserID == 0 {
			return errNoTarget
		}
		_, err := i.notifications.Create(ctx, &models.CreateNotificationRequest{
			UserID: env.Target.UserID,
			Kind:   models.NotificationKind(n.Kind),
			Title:  n.Title,
			Body:   n.Body,
			Data:   n.Data,
		})
		return err
	}

	return i.dispatch(ctx, env.Target, e)
}

func (i *Ingestor) dispatch(ctx context.Context, target ws.Target, e ws.Event) error {
	var (
		d   ws.Delivery
		err error
	)
	switch {
	case target.ChannelID != 0 && target.ExcludeUserID != 0:
		d, err = i.sink.ToChannelExcept(ctx, target.ChannelID, e, target.ExcludeUserID)
	case target.ChannelID != 0:
		d, err = i.sink.ToChannel(ctx, target.ChannelID, e)
	case target.UserID != 0:
		d, err = i.sink.ToUser(ctx, target.UserID, e)
	default:
		return errNoTarget
	}
	if err != nil {
		return err
	}
	// a deleted channel has no live audience left once subscribers were told
	if del, ok := e.(ws.ChannelDeleted); ok {
		channelID := del.ChannelID
		if channelID == 0 {
			channelID = target.ChannelID
		}
		i.sink.DropChannel(channelID)
	}
	slog.Debug("Ingested event delivered", "type", e.Type(), "recipients", d.Recipients, "failed", d.Failed)
	return nil
}

func (i *Ingestor) Close() error {
	return i.reader.Close()
}
