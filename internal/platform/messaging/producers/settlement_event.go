// Package producers publishes ledger events to Kafka. Settlement events
// feed downstream consumers (statements, notifications); publication is
// best-effort and never blocks a settlement from committing.
package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aurora-banking-core/internal/config"
	"github.com/aurora-banking-core/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// SettlementEvent describes a transaction that reached a terminal status
type SettlementEvent struct {
	TransactionID        uuid.UUID                `json:"transaction_id"`
	AccountID            uuid.UUID                `json:"account_id"`
	Type                 shared.TransactionType   `json:"type"`
	Status               shared.TransactionStatus `json:"status"`
	AmountMinor          int64                    `json:"amount_minor"`
	RelatedTransactionID *uuid.UUID               `json:"related_transaction_id,omitempty"`
	SettledAt            time.Time                `json:"settled_at"`
}

type SettlementEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new settlement event producer and ensures topic exists
func NewSettlementEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*SettlementEventProducer, error) {
	if cfg.SettlementTopic == "" {
		return nil, fmt.Errorf("kafka settlement topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for settlement event producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopic(conn, cfg.SettlementTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure settlement topic %s exists: %w", cfg.SettlementTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.SettlementTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true, // Settlement already committed; don't hold the request
		WriteTimeout: cfg.WriteTimeout,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write settlement events asynchronously", "topic", cfg.SettlementTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote settlement events asynchronously", "topic", cfg.SettlementTopic, "count", len(messages))
			}
		},
	}

	return &SettlementEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.SettlementTopic,
	}, nil
}

func (p *SettlementEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal settlement event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish settlement event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish settlement event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published settlement event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *SettlementEventProducer) Close() error {
	p.logger.Info("Closing settlement event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close settlement event writer for topic %s: %w", p.topic, err)
	}
	return nil
}
