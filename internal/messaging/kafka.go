package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/moviegraph/internal/config"
	"github.com/temcen/moviegraph/pkg/models"
)

const (
	EventRatingCreated = "rating.created"
	EventRatingUpdated = "rating.updated"
	EventRatingDeleted = "rating.deleted"

	publishTimeout = 5 * time.Second
)

type RatingEvent struct {
	EventID    uuid.UUID          `json:"event_id"`
	Type       string             `json:"type"`
	UserID     string             `json:"user_id"`
	MovieID    string             `json:"movie_id"`
	Rating     float64            `json:"rating,omitempty"`
	MovieStats *models.MovieStats `json:"movie_stats,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
}

// MessageWriter is the part of kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type RatingEventPublisher struct {
	writer MessageWriter
	topic  string
	logger *logrus.Logger
}

func NewRatingEventPublisher(cfg *config.Config, logger *logrus.Logger) *RatingEventPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.Topics.RatingEvents,
		Balancer:               &kafka.Hash{}, // Keyed by movie so events for one movie stay ordered
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return NewRatingEventPublisherWithWriter(writer, cfg.Kafka.Topics.RatingEvents, logger)
}

func NewRatingEventPublisherWithWriter(writer MessageWriter, topic string, logger *logrus.Logger) *RatingEventPublisher {
	return &RatingEventPublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

// Publish writes the event even if ctx is already cancelled; the rating it
// describes has been committed by then.
func (p *RatingEventPublisher) Publish(ctx context.Context, event RatingEvent) error {
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal rating event: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(event.MovieID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID.String())},
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write rating event to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":   event.EventID,
		"event_type": event.Type,
		"movie_id":   event.MovieID,
		"topic":      p.topic,
	}).Debug("Rating event published")

	return nil
}

func (p *RatingEventPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close rating event writer: %w", err)
	}
	return nil
}

// NopPublisher drops every event. It is used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, RatingEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
