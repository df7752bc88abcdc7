package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"alpha-radar/src/models"

	"github.com/segmentio/kafka-go"
)

// messageWriter is the part of *kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// -----------------------------------------------------------------------------

// KafkaSignalPublisher streams each signal of a completed scan as one message keyed by
// symbol, followed by a scan-completed marker keyed by scan id.
type KafkaSignalPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaSignalPublisher(cfg models.MKafkaConfig) (*KafkaSignalPublisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Gzip,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchSize:    100,
		BatchTimeout: time.Second,
	}
	return &KafkaSignalPublisher{writer: writer, topic: cfg.Topic}, nil
}

func (p *KafkaSignalPublisher) Name() string {
	return "kafka"
}

// -----------------------------------------------------------------------------

// signalEnvelope is the message body of one signal.
type signalEnvelope struct {
	Kind   string         `json:"kind"`
	ScanID string         `json:"scan_id"`
	Signal models.MSignal `json:"signal"`
}

type completedEnvelope struct {
	Kind        string            `json:"kind"`
	ScanID      string            `json:"scan_id"`
	State       models.MScanState `json:"state"`
	Processed   int               `json:"processed"`
	Total       int               `json:"total"`
	SignalCount int               `json:"signal_count"`
	FinishedAt  time.Time         `json:"finished_at"`
}

func buildMessages(result *models.MScanResult) ([]kafka.Message, error) {
	now := time.Now()
	msgs := make([]kafka.Message, 0, len(result.Signals)+1)

	for _, s := range result.Signals {
		body, err := json.Marshal(signalEnvelope{Kind: "signal", ScanID: result.ScanID, Signal: s})
		if err != nil {
			return nil, fmt.Errorf("marshal signal %s: %w", s.Symbol, err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(s.Symbol), Value: body, Time: now})
	}

	body, err := json.Marshal(completedEnvelope{
		Kind:        "scan_completed",
		ScanID:      result.ScanID,
		State:       result.State,
		Processed:   result.Processed,
		Total:       result.Total,
		SignalCount: len(result.Signals),
		FinishedAt:  result.FinishedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scan marker: %w", err)
	}
	msgs = append(msgs, kafka.Message{Key: []byte(result.ScanID), Value: body, Time: now})

	return msgs, nil
}

// Publish writes the whole scan in one batch.
func (p *KafkaSignalPublisher) Publish(ctx context.Context, result *models.MScanResult) error {
	msgs, err := buildMessages(result)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages to %s: %w", len(msgs), p.topic, err)
	}
	return nil
}

func (p *KafkaSignalPublisher) Close() error {
	return p.writer.Close()
}
