package events

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/festival-scheduler-api/pkg/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaProducerProduce(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaProducer(w, "festival.schedule.events", nil)

	require.NoError(t, p.Produce(context.Background(), "Spring Festival", []byte(`{"type":"schedule.created"}`), map[string]string{"event-type": "schedule.created"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "Spring Festival", string(w.msgs[0].Key))
	require.Len(t, w.msgs[0].Headers, 1)
	assert.Equal(t, "event-type", w.msgs[0].Headers[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducerWrapsErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newKafkaProducer(w, "topic", nil)
	err := p.Produce(context.Background(), "k", nil, nil)
	assert.ErrorContains(t, err, "broker down")
}

func TestNewKafkaProducerRequiresConfig(t *testing.T) {
	_, err := NewKafkaProducer(config.EventsConfig{Topic: "t"}, nil)
	assert.Error(t, err)
	_, err = NewKafkaProducer(config.EventsConfig{Brokers: []string{"localhost:9092"}}, nil)
	assert.Error(t, err)
}
