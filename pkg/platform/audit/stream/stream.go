// Package stream mirrors audit events onto a Kafka topic so downstream
// consumers can follow registry changes without polling the audit store.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"claimsreg/internal/platform/kafka/producer"
	"claimsreg/pkg/domain"
	audit "claimsreg/pkg/platform/audit"
)

// Producer is the subset of the Kafka producer the stream needs.
type Producer interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

// Store wraps an audit.Store. The wrapped store stays the system of record;
// publish failures are logged and never fail the append.
type Store struct {
	inner    audit.Store
	producer Producer
	topic    string
	logger   *slog.Logger
}

// New creates a streaming audit store.
func New(inner audit.Store, p Producer, topic string, logger *slog.Logger) *Store {
	return &Store{inner: inner, producer: p, topic: topic, logger: logger}
}

// Message is the JSON payload published for each event.
type Message struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	Category  string            `json:"category"`
	Subject   *domain.Address   `json:"subject,omitempty"`
	ClaimType *domain.ClaimType `json:"claim_type,omitempty"`
	Issuer    *domain.Address   `json:"issuer,omitempty"`
	Owner     *domain.Address   `json:"owner,omitempty"`
	Signer    *domain.Address   `json:"signer,omitempty"`
	StoreRef  *domain.Address   `json:"store_ref,omitempty"`
	Actor     *domain.Address   `json:"actor,omitempty"`
	Outcome   string            `json:"outcome,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// Encode builds the wire message for event.
func Encode(event audit.Event) Message {
	return Message{
		ID:        event.ID,
		Timestamp: event.Timestamp,
		Action:    event.Action,
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Subject:   optAddr(event.Subject),
		ClaimType: optClaim(event.ClaimType),
		Issuer:    optAddr(event.Issuer),
		Owner:     optAddr(event.Owner),
		Signer:    optAddr(event.Signer),
		StoreRef:  optAddr(event.StoreRef),
		Actor:     optAddr(event.Actor),
		Outcome:   event.Outcome,
		RequestID: event.RequestID,
	}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if err := s.inner.Append(ctx, event); err != nil {
		return err
	}
	if err := s.publish(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to stream audit event",
			"error", err,
			"action", event.Action,
			"topic", s.topic,
		)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subject domain.Address) ([]audit.Event, error) {
	return s.inner.ListBySubject(ctx, subject)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return s.inner.ListRecent(ctx, limit)
}

func (s *Store) publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(Encode(event))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	return s.producer.Produce(ctx, &producer.Message{
		Topic: s.topic,
		Key:   []byte(partitionKey(event)),
		Value: payload,
		Headers: map[string]string{
			"action":   event.Action,
			"category": string(audit.AuditEvent(event.Action).Category()),
		},
	})
}

// partitionKey keeps events about the same subject, or failing that the same
// issuer, on one partition so consumers see them in order.
func partitionKey(event audit.Event) string {
	switch {
	case !event.Subject.IsNil():
		return event.Subject.String()
	case !event.Issuer.IsNil():
		return event.Issuer.String()
	default:
		return event.Action
	}
}

func optAddr(a domain.Address) *domain.Address {
	if a.IsNil() {
		return nil
	}
	return &a
}

func optClaim(c domain.ClaimType) *domain.ClaimType {
	if c.IsNil() {
		return nil
	}
	return &c
}
