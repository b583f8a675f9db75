//go:build integration

package producer_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"claimsreg/internal/platform/kafka/producer"
	"claimsreg/pkg/testutil/containers"
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
	cfg := producer.DefaultConfig()
	cfg.Brokers = s.kafka.Brokers
	cfg.DeliveryTimeout = 10 * time.Second
	prod, err := producer.New(cfg, nil)
	s.Require().NoError(err)
	s.producer = prod
}

func (s *ProducerIntegrationSuite) TearDownSuite() {
	if s.producer != nil {
		s.Require().NoError(s.producer.Close())
	}
}

func (s *ProducerIntegrationSuite) firstRecord(topic, group string) *kgo.Record {
	consumer, err := s.kafka.NewConsumer(group, topic)
	s.Require().NoError(err)
	defer consumer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for ctx.Err() == nil {
		fetches := consumer.PollFetches(ctx)
		if recs := fetches.Records(); len(recs) > 0 {
			return recs[0]
		}
	}
	return nil
}

// Produce returns only after the broker acknowledged the record, so it must
// be immediately consumable with its headers intact.
func (s *ProducerIntegrationSuite) TestProduceDeliversWithHeaders() {
	ctx := context.Background()
	topic := "claimsreg-produce-test"
	s.Require().NoError(s.kafka.CreateTopic(ctx, topic, 1, 1))

	err := s.producer.Produce(ctx, &producer.Message{
		Topic:   topic,
		Key:     []byte("0x01"),
		Value:   []byte(`{"action":"attestation_issued"}`),
		Headers: map[string]string{"category": "attestation"},
	})
	s.Require().NoError(err)

	record := s.firstRecord(topic, "claimsreg-produce-test-group")
	s.Require().NotNil(record)
	s.Equal("0x01", string(record.Key))
	s.Require().Len(record.Headers, 1)
	s.Equal("category", record.Headers[0].Key)
	s.Equal("attestation", string(record.Headers[0].Value))
}

func (s *ProducerIntegrationSuite) TestHealth() {
	s.NoError(s.producer.Health(context.Background()))
}
