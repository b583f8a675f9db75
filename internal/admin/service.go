package admin

import (
	"context"
	"errors"
	"time"

	"claimsreg/internal/catalog"
	indexmodels "claimsreg/internal/catalogindex/models"
	rightsmodels "claimsreg/internal/rights/models"
	"claimsreg/pkg/domain"
	dErrors "claimsreg/pkg/domain-errors"
	"claimsreg/pkg/platform/audit"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 500
)

// EventReader reads the audit log.
type EventReader interface {
	ListBySubject(ctx context.Context, subject domain.Address) ([]audit.Event, error)
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}

type IssuerLister interface {
	TrustedIssuers(ctx context.Context) ([]*rightsmodels.Issuer, error)
}

type BindingLister interface {
	Bindings(ctx context.Context) ([]*indexmodels.Binding, error)
}

// Service provides read-only monitoring over the registry and its audit log.
type Service struct {
	events   EventReader
	issuers  IssuerLister
	bindings BindingLister
	now      func() time.Time
}

func NewService(events EventReader, issuers IssuerLister, bindings BindingLister) (*Service, error) {
	if events == nil {
		return nil, errors.New("event reader is required")
	}
	if issuers == nil {
		return nil, errors.New("issuer lister is required")
	}
	if bindings == nil {
		return nil, errors.New("binding lister is required")
	}
	return &Service{events: events, issuers: issuers, bindings: bindings, now: time.Now}, nil
}

// Stats summarizes registry state.
type Stats struct {
	TrustedIssuers int       `json:"trusted_issuers"`
	Grants         int       `json:"grants"`
	BoundClaims    int       `json:"bound_claims"`
	CatalogClaims  int       `json:"catalog_claims"`
	Timestamp      time.Time `json:"timestamp"`
}

func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	issuers, err := s.issuers.TrustedIssuers(ctx)
	if err != nil {
		return nil, err
	}
	bindings, err := s.bindings.Bindings(ctx)
	if err != nil {
		return nil, err
	}
	grants := 0
	for _, iss := range issuers {
		grants += len(iss.ManagedClaims)
	}
	return &Stats{
		TrustedIssuers: len(issuers),
		Grants:         grants,
		BoundClaims:    len(bindings),
		CatalogClaims:  len(catalog.All()),
		Timestamp:      s.now(),
	}, nil
}

// SubjectHistory returns every event naming subject, newest first.
func (s *Service) SubjectHistory(ctx context.Context, subject domain.Address) ([]audit.Event, error) {
	if subject.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "subject must not be the null address")
	}
	events, err := s.events.ListBySubject(ctx, subject)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit events")
	}
	return events, nil
}

// RecentEvents returns the latest events. Non-positive limits use the default;
// larger ones are capped.
func (s *Service) RecentEvents(ctx context.Context, limit int) ([]audit.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultRecentLimit
	case limit > maxRecentLimit:
		limit = maxRecentLimit
	}
	events, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit events")
	}
	return events, nil
}
