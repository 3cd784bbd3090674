package repository

import (
	"context"

	"CANProbe/internal/domain/models"
	domrepo "CANProbe/internal/domain/repository"
	pkgkafka "CANProbe/pkg/kafka"
)

// DefaultArchiveTopic is the run-record topic used when the config
// leaves it unset.
const DefaultArchiveTopic = "can.run_records"

// KafkaArchivePublisher implements SamplePublisher for Kafka. Records
// are keyed by run id so one run stays ordered within a partition.
type KafkaArchivePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaArchivePublisher(producer *pkgkafka.Producer, topic string) *KafkaArchivePublisher {
	if topic == "" {
		topic = DefaultArchiveTopic
	}
	return &KafkaArchivePublisher{producer: producer, topic: topic}
}

func (p *KafkaArchivePublisher) Publish(ctx context.Context, rec *models.ArchiveRecord) error {
	return p.producer.Publish(ctx, p.topic, []byte(rec.RunID), rec)
}

func (p *KafkaArchivePublisher) PublishBatch(ctx context.Context, recs []*models.ArchiveRecord) error {
	if len(recs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(recs))
	for i, rec := range recs {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(rec.RunID),
			Value: rec,
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaArchivePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.SamplePublisher = (*KafkaArchivePublisher)(nil)
