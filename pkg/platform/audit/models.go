package audit

import (
	"context"
	"time"

	"claimsreg/pkg/domain"
)

// Event is one entry of the append-only audit log. Keep it transport-agnostic so
// stores and sinks can fan out. Identifier fields are left null when an action
// does not involve them.
type Event struct {
	ID        string
	Timestamp time.Time
	Action    string
	Subject   domain.Address
	ClaimType domain.ClaimType
	Issuer    domain.Address
	Owner     domain.Address
	Signer    domain.Address
	StoreRef  domain.Address
	Actor     domain.Address
	Outcome   string
	RequestID string
}

// AuditEvent names an action recorded in the log.
type AuditEvent string

const (
	EventIssuerTrusted      AuditEvent = "issuer_trusted"
	EventIssuerUntrusted    AuditEvent = "issuer_untrusted"
	EventClaimGranted       AuditEvent = "claim_granted"
	EventClaimRevoked       AuditEvent = "claim_revoked"
	EventStoreRegistered    AuditEvent = "store_registered"
	EventStoreUnregistered  AuditEvent = "store_unregistered"
	EventAttestationIssued  AuditEvent = "attestation_issued"
	EventAttestationRevoked AuditEvent = "attestation_revoked"
	EventSignatureVerified  AuditEvent = "signature_verified"
	EventVerificationFailed AuditEvent = "signature_verification_failed"
)

// Category groups events for retention and routing.
type Category string

const (
	CategoryRights       Category = "rights"
	CategoryAttestation  Category = "attestation"
	CategoryVerification Category = "verification"
)

// Category returns the routing category for the event. Unknown events fall back
// to CategoryRights so they land with administrative history.
func (e AuditEvent) Category() Category {
	switch e {
	case EventAttestationIssued, EventAttestationRevoked:
		return CategoryAttestation
	case EventSignatureVerified, EventVerificationFailed:
		return CategoryVerification
	default:
		return CategoryRights
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListBySubject(ctx context.Context, subject domain.Address) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
