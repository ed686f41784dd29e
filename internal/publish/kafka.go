// Package publish streams classified trades to Kafka so downstream
// consumers can follow a session's detections live.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/OnchainAlpha/solanatrading/internal/domain"
	"github.com/OnchainAlpha/solanatrading/internal/storage"
)

// tradeMessage is the wire form of one trade record.
type tradeMessage struct {
	TokenAddress string  `json:"token_address"`
	Timestamp    string  `json:"timestamp"`
	Side         string  `json:"side"`
	SolAmount    float64 `json:"sol_amount"`
	TokenAmount  float64 `json:"token_amount"`
	TxSignature  string  `json:"tx_signature"`
}

// EnsureTopic attempts to create the topic (best-effort).
func EnsureTopic(ctx context.Context, broker, topic string, logger *log.Logger) {
	if logger == nil {
		logger = log.Default()
	}

	conn, err := kafka.DialContext(ctx, "tcp", broker)
	if err != nil {
		logger.Printf("ensure topic: dial failed: %v", err)
		return
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logger.Printf("ensure topic: create(%s): %v (ok if exists)", topic, err)
	}
}

// KafkaPublisher implements storage.TradeSink by writing JSON trade
// messages keyed by token address.
type KafkaPublisher struct {
	writer *kafka.Writer
}

var _ storage.TradeSink = (*KafkaPublisher)(nil)

// NewKafkaPublisher constructs a publisher for brokers and topic.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})

	return &KafkaPublisher{writer: writer}
}

// InsertTrades publishes one message per record.
func (p *KafkaPublisher) InsertTrades(ctx context.Context, tokenAddress string, records []domain.TradeRecord) error {
	if len(records) == 0 {
		return nil
	}

	messages := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		value, err := encodeTrade(tokenAddress, rec)
		if err != nil {
			return err
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(tokenAddress),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write trade messages: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeTrade(tokenAddress string, rec domain.TradeRecord) ([]byte, error) {
	msg := tradeMessage{
		TokenAddress: tokenAddress,
		Timestamp:    rec.Timestamp.UTC().Format(time.RFC3339),
		Side:         string(rec.Side),
		SolAmount:    rec.SolAmount,
		TokenAmount:  rec.TokenAmount,
		TxSignature:  rec.Signature,
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode trade message: %w", err)
	}
	return value, nil
}
