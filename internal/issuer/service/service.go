// Package service is the issuer-facing surface: an issuer's owner submits
// signatures it computed offline, and the facade routes them to the claim
// store bound to the claim type.
package service

import (
	"context"
	"errors"
	"log/slog"

	"claimsreg/internal/catalog"
	"claimsreg/internal/claimstore"
	"claimsreg/internal/claimstore/models"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/ethsig"
	"claimsreg/pkg/platform/tracer"
)

// Rights resolves the key that controls an issuer.
type Rights interface {
	OwnerOf(ctx context.Context, issuer domain.Address) (domain.Address, error)
}

// Index locates the store reference for a claim type.
type Index interface {
	StoreFor(ctx context.Context, claimType domain.ClaimType) (domain.Address, error)
}

// Stores hands out claim stores by reference.
type Stores interface {
	Store(storeRef domain.Address, claimType domain.ClaimType) *claimstore.ClaimStore
}

type Service struct {
	rights        Rights
	index         Index
	stores        Stores
	logger        *slog.Logger
	tracer        tracer.Tracer
	signerBinding bool
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithSignerBinding requires every issued signature to recover to the
// issuer's owner for the submitted (subject, claim type).
func WithSignerBinding(enabled bool) Option {
	return func(s *Service) {
		s.signerBinding = enabled
	}
}

func New(rights Rights, index Index, stores Stores, opts ...Option) (*Service, error) {
	if rights == nil || index == nil || stores == nil {
		return nil, errors.New("rights, index and stores are required")
	}
	s := &Service{rights: rights, index: index, stores: stores}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s, nil
}

// Facade returns the operation surface of one issuer.
func (s *Service) Facade(issuer domain.Address) *Facade {
	return &Facade{svc: s, issuer: issuer}
}

type Facade struct {
	svc    *Service
	issuer domain.Address
}

func (f *Facade) Issuer() domain.Address {
	return f.issuer
}

// Issue stores signature as the issuer's attestation that subject holds claimType.
func (f *Facade) Issue(ctx context.Context, caller, subject domain.Address, claimType domain.ClaimType, signature []byte) (att *models.Attestation, err error) {
	ctx, span := f.svc.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrIssuer, f.issuer.String()),
		tracer.String(tracer.AttrSubject, subject.String()),
		tracer.String(tracer.AttrClaimName, catalog.NameOf(claimType)),
	)
	defer func() { span.End(err) }()

	owner, err := f.requireOwner(ctx, caller)
	if err != nil {
		return nil, err
	}
	store, err := f.storeFor(ctx, claimType)
	if err != nil {
		return nil, err
	}
	if f.svc.signerBinding {
		if err := requireSignedBy(owner, subject, claimType, signature); err != nil {
			return nil, err
		}
	}

	att, err = store.Issue(ctx, f.issuer, subject, signature)
	if err != nil {
		return nil, err
	}
	f.svc.logger.InfoContext(ctx, "attestation issued",
		"issuer", f.issuer.String(),
		"claim", catalog.NameOf(claimType),
	)
	return att, nil
}

// Revoke clears subject's claimType attestation.
func (f *Facade) Revoke(ctx context.Context, caller, subject domain.Address, claimType domain.ClaimType) (err error) {
	ctx, span := f.svc.tracer.Start(ctx, tracer.SpanRevoke,
		tracer.String(tracer.AttrIssuer, f.issuer.String()),
		tracer.String(tracer.AttrSubject, subject.String()),
		tracer.String(tracer.AttrClaimName, catalog.NameOf(claimType)),
	)
	defer func() { span.End(err) }()

	if _, err = f.requireOwner(ctx, caller); err != nil {
		return err
	}
	store, err := f.storeFor(ctx, claimType)
	if err != nil {
		return err
	}
	return store.Revoke(ctx, f.issuer, subject)
}

// requireOwner checks caller controls the issuer. An untrusted issuer has no
// owner, so its callers are forbidden too.
func (f *Facade) requireOwner(ctx context.Context, caller domain.Address) (domain.Address, error) {
	owner, err := f.svc.rights.OwnerOf(ctx, f.issuer)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return domain.Address{}, dErrors.New(dErrors.CodeForbidden, "issuer is not trusted")
		}
		return domain.Address{}, err
	}
	if caller.IsNil() || caller != owner {
		return domain.Address{}, dErrors.New(dErrors.CodeForbidden, "caller is not the issuer owner")
	}
	return owner, nil
}

func (f *Facade) storeFor(ctx context.Context, claimType domain.ClaimType) (*claimstore.ClaimStore, error) {
	if !catalog.IsValid(claimType) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim type is not in the catalog")
	}
	ref, err := f.svc.index.StoreFor(ctx, claimType)
	if err != nil {
		return nil, err
	}
	return f.svc.stores.Store(ref, claimType), nil
}

func requireSignedBy(owner, subject domain.Address, claimType domain.ClaimType, signature []byte) error {
	signer, err := ethsig.RecoverClaimSigner(subject, claimType, signature)
	if err != nil {
		return err
	}
	if signer != owner {
		return dErrors.New(dErrors.CodeForbidden, "signature was not produced by the issuer owner")
	}
	return nil
}
