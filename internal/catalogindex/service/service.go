// Package service maintains the catalog index: which store reference holds
// the attestations of each claim type.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"claimsreg/internal/catalog"
	"claimsreg/internal/catalogindex/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/audit"
	txcontext "claimsreg/pkg/platform/tx"
)

type Store interface {
	Bind(ctx context.Context, b *models.Binding) error
	Unbind(ctx context.Context, claimType domain.ClaimType) (*models.Binding, error)
	FindByClaim(ctx context.Context, claimType domain.ClaimType) (*models.Binding, error)
	FindByRef(ctx context.Context, storeRef domain.Address) (*models.Binding, error)
	List(ctx context.Context) ([]*models.Binding, error)
}

type StoreTx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	store         Store
	tx            StoreTx
	registryOwner domain.Address
	logger        *slog.Logger
	auditEmitter  audit.Emitter
	audit         *audit.Logger
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

func New(store Store, registryOwner domain.Address, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog index store is required")
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

// RegisterStore binds claimType to storeRef. Neither side may already be bound.
func (s *Service) RegisterStore(ctx context.Context, caller domain.Address, claimType domain.ClaimType, storeRef domain.Address) (*models.Binding, error) {
	if caller != s.registryOwner {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not the registry owner")
	}
	if !catalog.IsValid(claimType) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "claim type is not in the catalog")
	}
	if storeRef.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "store reference required")
	}

	b := &models.Binding{ClaimType: claimType, StoreRef: storeRef, RegisteredAt: s.now().UTC()}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.Bind(ctx, b); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "claim type or store reference already bound")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to register store")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, audit.EventStoreRegistered, audit.Event{ClaimType: claimType, StoreRef: storeRef, Actor: caller})
	return b, nil
}

// UnregisterStore drops the binding for claimType. Attestations held under the
// old reference are left in place and reappear if it is bound again.
func (s *Service) UnregisterStore(ctx context.Context, caller domain.Address, claimType domain.ClaimType) error {
	if caller != s.registryOwner {
		return dErrors.New(dErrors.CodeForbidden, "caller is not the registry owner")
	}

	var removed *models.Binding
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.store.Unbind(ctx, claimType)
		if err != nil {
			return wrapBindingErr(err, "failed to unregister store")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Log(ctx, audit.EventStoreUnregistered, audit.Event{ClaimType: claimType, StoreRef: removed.StoreRef, Actor: caller})
	return nil
}

// StoreFor returns the store reference bound to claimType.
func (s *Service) StoreFor(ctx context.Context, claimType domain.ClaimType) (domain.Address, error) {
	b, err := s.store.FindByClaim(ctx, claimType)
	if err != nil {
		return domain.Address{}, wrapBindingErr(err, "failed to resolve store")
	}
	return b.StoreRef, nil
}

// ClaimTypeOf returns the claim type whose attestations live at storeRef.
func (s *Service) ClaimTypeOf(ctx context.Context, storeRef domain.Address) (domain.ClaimType, error) {
	b, err := s.store.FindByRef(ctx, storeRef)
	if err != nil {
		return domain.ClaimType{}, wrapBindingErr(err, "failed to resolve claim type")
	}
	return b.ClaimType, nil
}

func (s *Service) Bindings(ctx context.Context) ([]*models.Binding, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list bindings")
	}
	return list, nil
}

func wrapBindingErr(err error, action string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "store binding not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, action)
}
