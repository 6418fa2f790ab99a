//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"agentconsent/internal/platform/kafka/producer"
	"agentconsent/pkg/testutil/containers"
)

type ProducerIntegrationSuite struct {
	suite.Suite
	kafka    *containers.KafkaContainer
	producer *producer.Producer
}

func TestProducerIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(ProducerIntegrationSuite))
}

func (s *ProducerIntegrationSuite) SetupSuite() {
	s.kafka = containers.GetManager().GetKafka(s.T())
	cfg := producer.DefaultConfig(s.kafka.Brokers)
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.producer.Close(5 * time.Second)
	}
}

func (s *ProducerIntegrationSuite) TestProduceIsAcknowledged() {
	ctx := context.Background()
	topic := "test-consent-events"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))
	s.Require().NoError(s.producer.Ping(ctx))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("consent-1"),
		Value:   []byte(`{"action":"consent_granted"}`),
		Headers: map[string]string{"event_type": "consent_granted"},
	})
	s.Require().NoError(err)

	consumer, err := s.kafka.NewConsumer("producer-test", topic)
	s.Require().NoError(err)
	defer consumer.Close()

	rec := s.kafka.WaitForMessage(ctx, consumer, 15*time.Second, func(r *kgo.Record) bool {
		return string(r.Key) == "consent-1"
	})
	s.Require().NotNil(rec)
	s.JSONEq(`{"action":"consent_granted"}`, string(rec.Value))
}
