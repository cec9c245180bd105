// Package kafka publishes activity records to a Kafka topic as JSON.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"lostfound/internal/activity/models"
	"lostfound/internal/platform/kafka/producer"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "lostfound.activity"

type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

type Sink struct {
	producer Producer
	topic    string
}

func New(p Producer, topic string) *Sink {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Sink{producer: p, topic: topic}
}

// Publish keys the record by item so one item's history stays on one partition.
func (s *Sink) Publish(ctx context.Context, rec *models.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode activity record: %w", err)
	}
	key := rec.ID.String()
	if !rec.ItemID.IsNil() {
		key = rec.ItemID.String()
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
		Headers: map[string]string{
			"kind":     string(rec.Kind),
			"audience": string(rec.Audience),
		},
	})
}
