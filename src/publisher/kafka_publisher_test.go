package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"alpha-radar/src/models"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublishWritesSignalsThenMarker(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaSignalPublisher{writer: w, topic: "alpharadar.signals"}

	result := &models.MScanResult{
		ScanID: "scan-7",
		State:  models.ScanCompleted,
		Signals: []models.MSignal{
			{Symbol: "600000", Type: models.SignalWBottom, Score: 72},
			{Symbol: "300750", Type: models.SignalHighScore, Resonant: true, Score: 93},
		},
	}
	if err := p.Publish(context.Background(), result); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if len(w.written) != 3 {
		t.Fatalf("wrote %d messages, want 3", len(w.written))
	}
	if string(w.written[0].Key) != "600000" || string(w.written[1].Key) != "300750" || string(w.written[2].Key) != "scan-7" {
		t.Fatalf("keys = %s %s %s", w.written[0].Key, w.written[1].Key, w.written[2].Key)
	}

	var env signalEnvelope
	if err := json.Unmarshal(w.written[1].Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != "signal" || env.ScanID != "scan-7" || env.Signal.Type != models.SignalHighScore {
		t.Fatalf("envelope = %+v", env)
	}

	var marker map[string]any
	_ = json.Unmarshal(w.written[2].Value, &marker)
	if marker["kind"] != "scan_completed" || marker["signal_count"] != float64(2) {
		t.Fatalf("marker = %v", marker)
	}
}

func TestPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaSignalPublisher{writer: &fakeWriter{err: boom}, topic: "t"}

	err := p.Publish(context.Background(), &models.MScanResult{ScanID: "s"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped broker error", err)
	}
}

func TestNewKafkaSignalPublisherNeedsBrokers(t *testing.T) {
	if _, err := NewKafkaSignalPublisher(models.MKafkaConfig{Topic: "t"}); err == nil {
		t.Fatalf("missing brokers should fail")
	}
	p, err := NewKafkaSignalPublisher(models.MKafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	if err != nil || p.Name() != "kafka" {
		t.Fatalf("publisher = %v, %v", p, err)
	}
	p.Close()
}
