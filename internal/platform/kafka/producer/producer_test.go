package producer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresBrokers(t *testing.T) {
	_, err := New(Config{Brokers: " , "}, nil)
	require.Error(t, err)
}

func TestToRecordCopiesHeaders(t *testing.T) {
	rec := toRecord(&Message{
		Topic:   "agentconsent.consent.events",
		Key:     []byte("k"),
		Value:   []byte(`{}`),
		Headers: map[string]string{"event_type": "consent_granted"},
	})
	assert.Equal(t, "agentconsent.consent.events", rec.Topic)
	require.Len(t, rec.Headers, 1)
	assert.Equal(t, "event_type", rec.Headers[0].Key)
	assert.Equal(t, []byte("consent_granted"), rec.Headers[0].Value)
}

func TestClosedProducerRejects(t *testing.T) {
	// The client is lazy; no broker is contacted until a record is produced.
	p, err := New(Config{Brokers: "127.0.0.1:1", DeliveryTimeout: time.Second}, nil)
	require.NoError(t, err)
	p.Close(10 * time.Millisecond)

	assert.ErrorIs(t, p.Produce(context.Background(), &Message{Topic: "t"}), ErrClosed)
	assert.ErrorIs(t, p.Ping(context.Background()), ErrClosed)
	p.Close(time.Millisecond)
}

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers(" a:9092 ,,b:9092"))
	assert.Empty(t, splitBrokers(""))
}
