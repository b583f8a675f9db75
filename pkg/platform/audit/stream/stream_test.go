package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsreg/internal/platform/kafka/producer"
	"claimsreg/pkg/domain"
	audit "claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/audit/store/memory"
)

type captureProducer struct {
	messages []*producer.Message
	err      error
}

func (p *captureProducer) Produce(_ context.Context, msg *producer.Message) error {
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

func TestStore_AppendPublishesEvent(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewInMemoryStore()
	prod := &captureProducer{}
	store := New(inner, prod, "claims.audit", slog.New(slog.NewTextHandler(io.Discard, nil)))

	subject := domain.Address{0x0a}
	event := audit.Event{
		ID:        "evt-1",
		Action:    string(audit.EventSignatureVerified),
		Subject:   subject,
		ClaimType: domain.ClaimType{0x01},
		Signer:    domain.Address{0x0b},
		Outcome:   "verified",
	}
	require.NoError(t, store.Append(ctx, event))

	require.Len(t, prod.messages, 1)
	msg := prod.messages[0]
	assert.Equal(t, "claims.audit", msg.Topic)
	assert.Equal(t, subject.String(), string(msg.Key))
	assert.Equal(t, "verification", msg.Headers["category"])

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "signature_verified", decoded["action"])
	assert.Equal(t, domain.Address{0x0b}.String(), decoded["signer"])
	assert.NotContains(t, decoded, "issuer")

	stored, err := store.ListBySubject(ctx, subject)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestStore_PublishFailureDoesNotFailAppend(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewInMemoryStore()
	store := New(inner, &captureProducer{err: errors.New("broker down")}, "t", nil)

	require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventIssuerTrusted)}))

	recent, err := store.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestPartitionKey(t *testing.T) {
	issuer := domain.Address{0x02}
	assert.Equal(t, issuer.String(), partitionKey(audit.Event{Issuer: issuer, Action: "claim_granted"}))
	assert.Equal(t, "claim_granted", partitionKey(audit.Event{Action: "claim_granted"}))
}
