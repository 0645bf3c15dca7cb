package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/contracts"
)

// KafkaPublisher writes event envelopes to per-class topics, keyed by the
// envelope's partition key so one escrow's events stay ordered.
type KafkaPublisher struct {
	writer         *kafka.Writer
	domainTopic    string
	analyticsTopic string
	opsTopic       string
	dlqTopic       string
}

type KafkaTopics struct {
	Domain    string
	Analytics string
	Ops       string
	DLQ       string
}

func NewKafkaPublisher(brokers []string, topics KafkaTopics) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka publisher requires at least one broker")
	}
	p := &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
		},
		domainTopic:    topics.Domain,
		analyticsTopic: topics.Analytics,
		opsTopic:       topics.Ops,
		dlqTopic:       topics.DLQ,
	}
	if p.domainTopic == "" { p.domainTopic = "settlement-engine.domain" }
	if p.analyticsTopic == "" { p.analyticsTopic = "settlement-engine.analytics" }
	if p.opsTopic == "" { p.opsTopic = "settlement-engine.ops" }
	if p.dlqTopic == "" { p.dlqTopic = "settlement-engine.dlq" }
	return p, nil
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil { return err }
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: b,
		Time:  time.Now().UTC(),
	})
}

func (p *KafkaPublisher) PublishDomain(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, p.domainTopic, envelope.PartitionKey, envelope)
}

func (p *KafkaPublisher) PublishAnalytics(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, p.analyticsTopic, envelope.PartitionKey, envelope)
}

func (p *KafkaPublisher) PublishOps(ctx context.Context, envelope contracts.EventEnvelope) error {
	return p.publish(ctx, p.opsTopic, envelope.PartitionKey, envelope)
}

func (p *KafkaPublisher) PublishDLQ(ctx context.Context, record contracts.DLQRecord) error {
	return p.publish(ctx, p.dlqTopic, record.TraceID, record)
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }
