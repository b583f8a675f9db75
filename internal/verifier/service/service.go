// Package service verifies attestations: it locates the stored signature,
// recovers the signing key, and checks that key's issuer is authorized for
// the claim type. Every verdict is recorded in the audit log.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimsreg/internal/catalog"
	"claimsreg/internal/claimstore/models"
	verifiermetrics "claimsreg/internal/verifier/metrics"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/ethsig"
	"claimsreg/pkg/platform/audit"
	"claimsreg/pkg/platform/tracer"
)

// Rights answers authorization queries against the registry.
type Rights interface {
	IsAuthorizedByOwner(ctx context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error)
	IssuerOf(ctx context.Context, owner domain.Address) (domain.Address, error)
}

// Index locates the store holding a claim type's attestations.
type Index interface {
	StoreFor(ctx context.Context, claimType domain.ClaimType) (domain.Address, error)
}

// Attestations reads stored attestations.
type Attestations interface {
	Attestation(ctx context.Context, storeRef domain.Address, claimType domain.ClaimType, subject domain.Address) (*models.Attestation, error)
}

// Outcome classifies a verdict.
type Outcome string

const (
	OutcomeVerified           Outcome = "verified"
	OutcomeUnauthorizedSigner Outcome = "unauthorized_signer"
	OutcomeNoAttestation      Outcome = "no_attestation"
)

const (
	pathStored = "stored"
	pathDirect = "direct"
)

// Result is the verdict for one (subject, claim type) check. Signer is null
// when no signature was recovered; Issuer is set only for verified results.
type Result struct {
	Subject   domain.Address   `json:"subject"`
	ClaimType domain.ClaimType `json:"claim_type"`
	Verified  bool             `json:"verified"`
	Outcome   Outcome          `json:"outcome"`
	Signer    domain.Address   `json:"signer"`
	Issuer    domain.Address   `json:"issuer"`
}

type Service struct {
	rights       Rights
	index        Index
	attestations Attestations
	logger       *slog.Logger
	auditEmitter audit.Emitter
	audit        *audit.Logger
	metrics      *verifiermetrics.Metrics
	tracer       tracer.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Emitter) Option {
	return func(s *Service) {
		s.auditEmitter = publisher
	}
}

func WithMetrics(m *verifiermetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(rights Rights, index Index, attestations Attestations, opts ...Option) (*Service, error) {
	if rights == nil {
		return nil, errors.New("rights registry is required")
	}
	if index == nil {
		return nil, errors.New("catalog index is required")
	}
	if attestations == nil {
		return nil, errors.New("attestation reader is required")
	}
	s := &Service{rights: rights, index: index, attestations: attestations}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	s.audit = audit.NewLogger(s.logger, s.auditEmitter)
	return s, nil
}

// Verify checks the attestation stored for subject. A missing attestation,
// an unbound claim type, or an unknown claim type is a negative verdict with
// OutcomeNoAttestation, never an error.
func (s *Service) Verify(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (result *Result, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrSubject, subject.String()),
		tracer.String(tracer.AttrClaimName, catalog.NameOf(claimType)),
	)
	defer func() {
		s.finish(span, pathStored, start, result, err)
	}()

	att, err := s.lookup(ctx, subject, claimType)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return s.verdict(ctx, pathStored, subject, claimType, OutcomeNoAttestation, domain.Address{}), nil
		}
		return nil, err
	}

	// A stored signature that cannot be recovered is a hard failure, never a verdict.
	signer, err := s.recoverSigner(ctx, subject, claimType, att.Signature)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeMalformedSignature) {
			s.logger.WarnContext(ctx, "stored signature is not recoverable",
				"subject", subject.String(),
				"claim", catalog.NameOf(claimType),
				"error", err,
			)
		}
		return nil, err
	}
	return s.authorize(ctx, pathStored, subject, claimType, signer)
}

// VerifySignature checks a caller-supplied signature without consulting the
// store. Unknown claim types and malformed signatures are hard errors.
func (s *Service) VerifySignature(ctx context.Context, subject domain.Address, claimType domain.ClaimType, signature []byte) (result *Result, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, tracer.SpanVerifySignature,
		tracer.String(tracer.AttrSubject, subject.String()),
		tracer.String(tracer.AttrClaimName, catalog.NameOf(claimType)),
	)
	defer func() {
		s.finish(span, pathDirect, start, result, err)
	}()

	if !catalog.IsValid(claimType) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim type is not in the catalog")
	}
	signer, err := s.recoverSigner(ctx, subject, claimType, signature)
	if err != nil {
		return nil, err
	}
	return s.authorize(ctx, pathDirect, subject, claimType, signer)
}

// Attestation returns the stored attestation for subject. Unknown or unbound
// claim types read as not found.
func (s *Service) Attestation(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (*models.Attestation, error) {
	return s.lookup(ctx, subject, claimType)
}

func (s *Service) lookup(ctx context.Context, subject domain.Address, claimType domain.ClaimType) (att *models.Attestation, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanStoreLookup,
		tracer.String(tracer.AttrClaimType, claimType.String()),
	)
	defer func() { span.End(ignoreNotFound(err)) }()

	if !catalog.IsValid(claimType) {
		return nil, dErrors.New(dErrors.CodeNotFound, "claim type is not in the catalog")
	}
	ref, err := s.index.StoreFor(ctx, claimType)
	if err != nil {
		return nil, err
	}
	return s.attestations.Attestation(ctx, ref, claimType, subject)
}

func (s *Service) recoverSigner(ctx context.Context, subject domain.Address, claimType domain.ClaimType, signature []byte) (signer domain.Address, err error) {
	_, span := s.tracer.Start(ctx, tracer.SpanRecover)
	defer func() { span.End(err) }()

	signer, err = ethsig.RecoverClaimSigner(subject, claimType, signature)
	if err != nil {
		return domain.Address{}, err
	}
	span.SetAttributes(tracer.String(tracer.AttrSigner, signer.String()))
	return signer, nil
}

func (s *Service) authorize(ctx context.Context, path string, subject domain.Address, claimType domain.ClaimType, signer domain.Address) (*Result, error) {
	ok, err := s.rights.IsAuthorizedByOwner(ctx, signer, claimType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check signer authorization")
	}
	if !ok {
		return s.verdict(ctx, path, subject, claimType, OutcomeUnauthorizedSigner, signer), nil
	}
	return s.verdict(ctx, path, subject, claimType, OutcomeVerified, signer), nil
}

// verdict builds the result and emits exactly one audit event for it.
func (s *Service) verdict(ctx context.Context, path string, subject domain.Address, claimType domain.ClaimType, outcome Outcome, signer domain.Address) *Result {
	result := &Result{
		Subject:   subject,
		ClaimType: claimType,
		Verified:  outcome == OutcomeVerified,
		Outcome:   outcome,
		Signer:    signer,
	}
	event := audit.Event{Subject: subject, ClaimType: claimType, Signer: signer, Outcome: string(outcome)}
	action := audit.EventVerificationFailed
	if result.Verified {
		action = audit.EventSignatureVerified
		issuer, err := s.rights.IssuerOf(ctx, signer)
		if err != nil {
			s.logger.WarnContext(ctx, "verified signer has no resolvable issuer", "signer", signer.String(), "error", err)
		} else {
			result.Issuer = issuer
			event.Issuer = issuer
		}
	}
	s.audit.Log(ctx, action, event)
	if s.metrics != nil {
		s.metrics.IncVerdict(path, catalog.NameOf(claimType), string(outcome))
	}
	return result
}

func (s *Service) finish(span tracer.Span, path string, start time.Time, result *Result, err error) {
	if result != nil {
		span.SetAttributes(tracer.String(tracer.AttrOutcome, string(result.Outcome)))
	}
	span.End(err)
	if s.metrics != nil {
		s.metrics.ObserveDuration(path, time.Since(start).Seconds())
	}
}

func ignoreNotFound(err error) error {
	if dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil
	}
	return err
}
