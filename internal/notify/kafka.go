package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaNotifier publishes notification requests to a topic, where the push
// delivery pipeline picks them up. Produces asynchronously; a failed publish
// is logged and dropped, matching the fire-and-forget contract.
type KafkaNotifier struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewKafkaNotifier connects a producer to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string, logger *slog.Logger) (*KafkaNotifier, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &KafkaNotifier{client: client, logger: logger}, nil
}

func (n *KafkaNotifier) Notify(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal notification request: %w", err)
	}

	record := &kgo.Record{
		// Keyed by marker so per-marker notifications stay ordered.
		Key:   []byte(req.MarkerID.String()),
		Value: payload,
	}
	n.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			n.logger.Warn("notification publish failed",
				"marker_id", req.MarkerID,
				"error", err,
			)
		}
	})
	return nil
}

// Close flushes buffered records and releases the producer.
func (n *KafkaNotifier) Close() {
	n.client.Close()
}
