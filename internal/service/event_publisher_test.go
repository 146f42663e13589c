package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/internal/models"
)

type fakeProducer struct {
	key     string
	value   []byte
	headers map[string]string
	ctxErr  error
	err     error
}

func (f *fakeProducer) Produce(ctx context.Context, key string, value []byte, headers map[string]string) error {
	f.key, f.value, f.headers = key, value, headers
	f.ctxErr = ctx.Err()
	return f.err
}

func TestKafkaEventPublisherEncodesEvent(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaEventPublisher(producer, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.Publish(ctx, models.ScheduleEvent{Type: models.EventScheduleModified, Competition: festival, Version: 4})

	assert.NoError(t, producer.ctxErr)
	assert.Equal(t, festival, producer.key)
	assert.Equal(t, "schedule.modified", producer.headers["event-type"])

	var decoded models.ScheduleEvent
	require.NoError(t, json.Unmarshal(producer.value, &decoded))
	assert.NotEmpty(t, decoded.ID)
	assert.False(t, decoded.OccurredAt.IsZero())
	assert.Equal(t, 4, decoded.Version)
}

func TestKafkaEventPublisherCountsFailures(t *testing.T) {
	metrics := NewMetricsService()
	pub := NewKafkaEventPublisher(&fakeProducer{err: errors.New("broker down")}, metrics, nil)

	pub.Publish(context.Background(), models.ScheduleEvent{Type: models.EventScheduleCreated, Competition: festival})

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "schedule_event_publish_failures_total 1")
}
