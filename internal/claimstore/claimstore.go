// Package claimstore holds attestations for one claim type per store reference.
// Every ClaimStore handed out by a Provider shares the provider's backend and
// consults the rights registry on each mutation.
package claimstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"claimsreg/internal/catalog"
	storemetrics "claimsreg/internal/claimstore/metrics"
	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/audit"
)

// IssuePolicy decides what Issue does when the subject already holds an attestation.
type IssuePolicy string

const (
	// IssuePolicyRejectExisting fails with CodeConflict; the issuer must revoke first.
	IssuePolicyRejectExisting IssuePolicy = "reject"
	// IssuePolicyUpsert replaces the stored signature.
	IssuePolicyUpsert IssuePolicy = "upsert"
)

// ParseIssuePolicy maps the configuration value to a policy. Empty means reject.
func ParseIssuePolicy(s string) (IssuePolicy, error) {
	switch IssuePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", IssuePolicyRejectExisting:
		return IssuePolicyRejectExisting, nil
	case IssuePolicyUpsert:
		return IssuePolicyUpsert, nil
	default:
		return "", fmt.Errorf("unknown issue policy %q", s)
	}
}

// Backend persists attestations keyed by (store ref, subject). Implementations
// return sentinel.ErrAlreadyUsed from Put when overwrite is false and an entry
// exists, and sentinel.ErrNotFound from Get/Delete when none does.
type Backend interface {
	Put(ctx context.Context, att *models.Attestation, overwrite bool) (replaced bool, err error)
	Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error)
	Delete(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error)
}

// Authorizer answers whether an issuer may attest a claim type.
type Authorizer interface {
	IsAuthorized(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error)
}

type Provider struct {
	backend      Backend
	rights       Authorizer
	policy       IssuePolicy
	logger       *slog.Logger
	auditEmitter audit.Emitter
	audit        *audit.Logger
	metrics      *storemetrics.Metrics
	now          func() time.Time
}

type Option func(*Provider)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(p *Provider) {
		p.auditEmitter = publisher
	}
}

func WithMetrics(m *storemetrics.Metrics) Option {
	return func(p *Provider) {
		p.metrics = m
	}
}

func WithIssuePolicy(policy IssuePolicy) Option {
	return func(p *Provider) {
		p.policy = policy
	}
}

func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		p.now = now
	}
}

func NewProvider(backend Backend, rights Authorizer, opts ...Option) (*Provider, error) {
	if backend == nil {
		return nil, errors.New("attestation backend is required")
	}
	if rights == nil {
		return nil, errors.New("rights authorizer is required")
	}
	p := &Provider{backend: backend, rights: rights, policy: IssuePolicyRejectExisting, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	p.audit = audit.NewLogger(p.logger, p.auditEmitter)
	return p, nil
}

// Policy reports the re-issuance policy shared by every store.
func (p *Provider) Policy() IssuePolicy {
	return p.policy
}

// Store returns the ClaimStore for storeRef, which holds claimType attestations.
func (p *Provider) Store(storeRef domain.Address, claimType domain.ClaimType) *ClaimStore {
	return &ClaimStore{provider: p, ref: storeRef, claimType: claimType}
}

// Attestation reads subject's attestation from the store at storeRef.
func (p *Provider) Attestation(ctx context.Context, storeRef domain.Address, claimType domain.ClaimType, subject domain.Address) (*models.Attestation, error) {
	return p.Store(storeRef, claimType).Attestation(ctx, subject)
}

type ClaimStore struct {
	provider  *Provider
	ref       domain.Address
	claimType domain.ClaimType
}

func (s *ClaimStore) Ref() domain.Address {
	return s.ref
}

func (s *ClaimStore) ClaimType() domain.ClaimType {
	return s.claimType
}

// Issue stores signature for subject on behalf of issuer, who must currently
// be authorized for the store's claim type.
func (s *ClaimStore) Issue(ctx context.Context, issuer, subject domain.Address, signature []byte) (*models.Attestation, error) {
	p := s.provider
	if subject.IsNil() {
		return nil, s.reject("null_subject", dErrors.New(dErrors.CodeInvalidInput, "subject address required"))
	}
	if len(signature) != models.SignatureLength {
		return nil, s.reject("malformed_signature", dErrors.New(dErrors.CodeMalformedSignature,
			fmt.Sprintf("signature must be %d bytes, got %d", models.SignatureLength, len(signature))))
	}
	if err := s.requireAuthorized(ctx, issuer); err != nil {
		return nil, s.reject("unauthorized", err)
	}

	att := &models.Attestation{
		StoreRef:  s.ref,
		Subject:   subject,
		ClaimType: s.claimType,
		Issuer:    issuer,
		Signature: append([]byte(nil), signature...),
		IssuedAt:  p.now().UTC(),
	}
	replaced, err := p.backend.Put(ctx, att, p.policy == IssuePolicyUpsert)
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, s.reject("exists", dErrors.New(dErrors.CodeConflict, "subject already holds an attestation; revoke it first"))
		}
		return nil, wrapBackendErr(err, "failed to store attestation")
	}

	p.audit.Log(ctx, audit.EventAttestationIssued, audit.Event{
		Subject: subject, ClaimType: s.claimType, Issuer: issuer, StoreRef: s.ref,
	})
	if p.metrics != nil {
		p.metrics.IncIssued(catalog.NameOf(s.claimType), replaced)
	}
	return att, nil
}

// Revoke clears subject's attestation. Any issuer currently authorized for
// the claim type may revoke.
func (s *ClaimStore) Revoke(ctx context.Context, issuer, subject domain.Address) error {
	p := s.provider
	if err := s.requireAuthorized(ctx, issuer); err != nil {
		return err
	}

	removed, err := p.backend.Delete(ctx, s.ref, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "subject holds no attestation")
		}
		return wrapBackendErr(err, "failed to revoke attestation")
	}

	p.audit.Log(ctx, audit.EventAttestationRevoked, audit.Event{
		Subject: subject, ClaimType: s.claimType, Issuer: removed.Issuer, StoreRef: s.ref, Actor: issuer,
	})
	if p.metrics != nil {
		p.metrics.IncRevoked(catalog.NameOf(s.claimType))
	}
	return nil
}

func (s *ClaimStore) Has(ctx context.Context, subject domain.Address) (bool, error) {
	_, err := s.Attestation(ctx, subject)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SignatureOf returns the stored 65-byte signature. Absence is CodeNotFound.
func (s *ClaimStore) SignatureOf(ctx context.Context, subject domain.Address) ([]byte, error) {
	att, err := s.Attestation(ctx, subject)
	if err != nil {
		return nil, err
	}
	return att.Signature, nil
}

func (s *ClaimStore) Attestation(ctx context.Context, subject domain.Address) (*models.Attestation, error) {
	att, err := s.provider.backend.Get(ctx, s.ref, subject)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject holds no attestation")
		}
		return nil, wrapBackendErr(err, "failed to load attestation")
	}
	return att, nil
}

func (s *ClaimStore) requireAuthorized(ctx context.Context, issuer domain.Address) error {
	if issuer.IsNil() {
		return dErrors.New(dErrors.CodeForbidden, "issuer identity required")
	}
	ok, err := s.provider.rights.IsAuthorized(ctx, issuer, s.claimType)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check issuer authorization")
	}
	if !ok {
		return dErrors.New(dErrors.CodeForbidden, "issuer is not authorized for this claim type")
	}
	return nil
}

func (s *ClaimStore) reject(reason string, err error) error {
	if s.provider.metrics != nil {
		s.provider.metrics.IncIssueRejected(reason)
	}
	return err
}

func wrapBackendErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, action)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
