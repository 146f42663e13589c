package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

// EventPublisher announces schedule lifecycle changes to downstream collaborators.
type EventPublisher interface {
	Publish(ctx context.Context, event models.ScheduleEvent)
}

type eventProducer interface {
	Produce(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// NoopEventPublisher drops every event.
type NoopEventPublisher struct{}

// Publish implements EventPublisher.
func (NoopEventPublisher) Publish(context.Context, models.ScheduleEvent) {}

// KafkaEventPublisher writes events keyed by competition. Failures are logged and counted,
// never returned to the caller.
type KafkaEventPublisher struct {
	producer eventProducer
	metrics  *MetricsService
	logger   *zap.Logger
	timeout  time.Duration
}

// NewKafkaEventPublisher wraps a producer.
func NewKafkaEventPublisher(producer eventProducer, metrics *MetricsService, logger *zap.Logger) *KafkaEventPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaEventPublisher{producer: producer, metrics: metrics, logger: logger, timeout: 5 * time.Second}
}

// Publish implements EventPublisher.
func (p *KafkaEventPublisher) Publish(ctx context.Context, event models.ScheduleEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	log := p.logger.With(zap.String("event_type", string(event.Type)), zap.String("competition", event.Competition))

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error("encode schedule event", zap.Error(err))
		p.metrics.ObserveEventFailure()
		return
	}

	// Request cancellation must not drop an event for a change that was already saved.
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	if err := p.producer.Produce(pubCtx, event.Competition, payload, map[string]string{"event-type": string(event.Type)}); err != nil {
		log.Warn("publish schedule event", zap.Error(err))
		p.metrics.ObserveEventFailure()
		return
	}
	log.Debug("schedule event published", zap.Int("version", event.Version))
}
