// Package service implements the rights registry: which issuers are trusted,
// which key owns each issuer, and which claim types each issuer may attest.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimsreg/internal/catalog"
	rightsmetrics "claimsreg/internal/rights/metrics"
	"claimsreg/internal/rights/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/audit"
	txcontext "claimsreg/pkg/platform/tx"
)

// Store is the persistence contract. Compound mutations (RemoveIssuer, GrantClaim,
// RevokeClaim) must update both directions of the relation atomically.
type Store interface {
	AddIssuer(ctx context.Context, issuer *models.Issuer) error
	RemoveIssuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error)
	FindIssuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error)
	FindIssuerByOwner(ctx context.Context, owner domain.Address) (*models.Issuer, error)
	ListIssuers(ctx context.Context) ([]*models.Issuer, error)
	GrantClaim(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) error
	RevokeClaim(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) error
	IsAuthorized(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error)
	IsAuthorizedByOwner(ctx context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error)
	AuthorizedIssuers(ctx context.Context, claimType domain.ClaimType) ([]domain.Address, error)
}

// StoreTx provides a transactional boundary for registry mutations.
type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Service guards every administrative mutation with the registry owner check.
type Service struct {
	store         Store
	tx            StoreTx
	registryOwner domain.Address
	logger        *slog.Logger
	auditEmitter  audit.Emitter
	audit         *audit.Logger
	metrics       *rightsmetrics.Metrics
	now           func() time.Time
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

func WithMetrics(m *rightsmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTx replaces the default in-memory transaction boundary.
func WithTx(tx StoreTx) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New creates the registry service. registryOwner is the only principal
// allowed to run administrative operations.
func New(store Store, registryOwner domain.Address, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("rights store is required")
	}
	if registryOwner.IsNil() {
		return nil, errors.New("registry owner is required")
	}
	s := &Service{store: store, registryOwner: registryOwner, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = txcontext.NewInMemory()
	}
	s.audit = audit.NewLogger(s.logger, s.auditEmitter)
	return s, nil
}

// RegistryOwner returns the administrative principal.
func (s *Service) RegistryOwner() domain.Address {
	return s.registryOwner
}

// AddTrustedIssuer trusts issuer and binds it to owner. Both sides of the
// owner mapping must be free.
func (s *Service) AddTrustedIssuer(ctx context.Context, caller, issuer, owner domain.Address) (*models.Issuer, error) {
	if err := s.requireRegistryOwner(caller); err != nil {
		return nil, err
	}
	if issuer.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "issuer address required")
	}
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owner address required")
	}

	record := &models.Issuer{Address: issuer, Owner: owner, TrustedAt: s.now().UTC(), ManagedClaims: []domain.ClaimType{}}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindIssuer(ctx, issuer); err == nil {
			return dErrors.New(dErrors.CodeConflict, "issuer already trusted")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
		}
		if _, err := s.store.FindIssuerByOwner(ctx, owner); err == nil {
			return dErrors.New(dErrors.CodeConflict, "owner already mapped to an issuer")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load owner mapping")
		}
		if err := s.store.AddIssuer(ctx, record); err != nil {
			return wrapIssuerErr(err, "failed to add trusted issuer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventIssuerTrusted, audit.Event{Issuer: issuer, Owner: owner, Actor: caller})
	if s.metrics != nil {
		s.metrics.IncIssuerTrusted()
	}
	return record, nil
}

// RemoveTrustedIssuer untrusts issuer, revokes every claim it manages, and
// frees its owner mapping. All of it happens in one transaction.
func (s *Service) RemoveTrustedIssuer(ctx context.Context, caller, issuer domain.Address) error {
	if err := s.requireRegistryOwner(caller); err != nil {
		return err
	}
	if issuer.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer address required")
	}

	var removed *models.Issuer
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.store.RemoveIssuer(ctx, issuer)
		if err != nil {
			return wrapIssuerErr(err, "failed to remove trusted issuer")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, claim := range removed.ManagedClaims {
		s.audit.Log(ctx, audit.EventClaimRevoked, audit.Event{Issuer: issuer, ClaimType: claim, Actor: caller})
		if s.metrics != nil {
			s.metrics.IncClaimRevoked(catalog.NameOf(claim), "cascade")
		}
	}
	s.audit.Log(ctx, audit.EventIssuerUntrusted, audit.Event{Issuer: issuer, Owner: removed.Owner, Actor: caller})
	if s.metrics != nil {
		s.metrics.IncIssuerUntrusted()
	}
	return nil
}

// GrantClaim authorizes a trusted issuer to attest claimType.
func (s *Service) GrantClaim(ctx context.Context, caller, issuer domain.Address, claimType domain.ClaimType) error {
	if err := s.requireRegistryOwner(caller); err != nil {
		return err
	}
	if issuer.IsNil() {
		return dErrors.New(dErrors.CodeInvalidInput, "issuer address required")
	}
	if err := requireCatalogClaim(claimType); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.GrantClaim(ctx, issuer, claimType); err != nil {
			switch {
			case errors.Is(err, sentinel.ErrNotFound):
				return dErrors.New(dErrors.CodeNotFound, "issuer not trusted")
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				return dErrors.New(dErrors.CodeConflict, "claim already granted to issuer")
			default:
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to grant claim")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(ctx, audit.EventClaimGranted, audit.Event{Issuer: issuer, ClaimType: claimType, Actor: caller})
	if s.metrics != nil {
		s.metrics.IncClaimGranted(catalog.NameOf(claimType))
	}
	return nil
}

// RevokeClaim withdraws the issuer's right to attest claimType. Revoking a
// pair that was never granted is CodeNotFound.
func (s *Service) RevokeClaim(ctx context.Context, caller, issuer domain.Address, claimType domain.ClaimType) error {
	if err := s.requireRegistryOwner(caller); err != nil {
		return err
	}
	if err := requireCatalogClaim(claimType); err != nil {
		return err
	}

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.RevokeClaim(ctx, issuer, claimType); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "claim not granted to issuer")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke claim")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(ctx, audit.EventClaimRevoked, audit.Event{Issuer: issuer, ClaimType: claimType, Actor: caller})
	if s.metrics != nil {
		s.metrics.IncClaimRevoked(catalog.NameOf(claimType), "explicit")
	}
	return nil
}

// IsAuthorized is true iff issuer is trusted and manages claimType.
func (s *Service) IsAuthorized(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error) {
	ok, err := s.store.IsAuthorized(ctx, issuer, claimType)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check authorization")
	}
	return ok, nil
}

// IsAuthorizedByOwner resolves owner to its issuer and checks the grant.
// An owner with no issuer is simply not authorized.
func (s *Service) IsAuthorizedByOwner(ctx context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error) {
	if owner.IsNil() {
		return false, nil
	}
	ok, err := s.store.IsAuthorizedByOwner(ctx, owner, claimType)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check owner authorization")
	}
	return ok, nil
}

func (s *Service) TrustedIssuers(ctx context.Context) ([]*models.Issuer, error) {
	issuers, err := s.store.ListIssuers(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list trusted issuers")
	}
	return issuers, nil
}

func (s *Service) Issuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error) {
	rec, err := s.store.FindIssuer(ctx, issuer)
	if err != nil {
		return nil, wrapIssuerErr(err, "failed to load issuer")
	}
	return rec, nil
}

// ManagedClaims lists the claim types issuer may attest. Untrusted issuers manage none.
func (s *Service) ManagedClaims(ctx context.Context, issuer domain.Address) ([]domain.ClaimType, error) {
	rec, err := s.store.FindIssuer(ctx, issuer)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return []domain.ClaimType{}, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issuer")
	}
	return rec.ManagedClaims, nil
}

func (s *Service) AuthorizedIssuers(ctx context.Context, claimType domain.ClaimType) ([]domain.Address, error) {
	issuers, err := s.store.AuthorizedIssuers(ctx, claimType)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorized issuers")
	}
	return issuers, nil
}

// IssuerOf returns the issuer owned by owner.
func (s *Service) IssuerOf(ctx context.Context, owner domain.Address) (domain.Address, error) {
	rec, err := s.store.FindIssuerByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return domain.Address{}, dErrors.New(dErrors.CodeNotFound, "owner has no issuer")
		}
		return domain.Address{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve owner")
	}
	return rec.Address, nil
}

// OwnerOf returns the key that signs for issuer.
func (s *Service) OwnerOf(ctx context.Context, issuer domain.Address) (domain.Address, error) {
	rec, err := s.store.FindIssuer(ctx, issuer)
	if err != nil {
		return domain.Address{}, wrapIssuerErr(err, "failed to resolve issuer owner")
	}
	return rec.Owner, nil
}

func (s *Service) requireRegistryOwner(caller domain.Address) error {
	if caller != s.registryOwner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the registry owner")
	}
	return nil
}

func requireCatalogClaim(claimType domain.ClaimType) error {
	if !catalog.IsValid(claimType) {
		return dErrors.New(dErrors.CodeInvalidInput, "claim type is not in the catalog")
	}
	return nil
}

func wrapIssuerErr(err error, action string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "issuer not trusted")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "issuer or owner already registered")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, action)
	}
}
