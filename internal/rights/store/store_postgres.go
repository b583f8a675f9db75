package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"claimsreg/internal/rights/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	txcontext "claimsreg/pkg/platform/tx"
)

// PostgresStore persists issuers in trusted_issuers and the relation in
// issuer_claims. Removing an issuer cascades to its claims through the
// foreign key, so both directions always change in one statement.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed rights store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) AddIssuer(ctx context.Context, issuer *models.Issuer) error {
	_, err := txcontext.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO trusted_issuers (issuer, owner, created_at)
		VALUES ($1, $2, $3)
	`, issuer.Address, issuer.Owner, issuer.TrustedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("issuer or owner already registered: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert trusted issuer: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveIssuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error) {
	q := txcontext.QuerierFor(ctx, s.db)
	removed, err := s.findIssuer(ctx, q, `WHERE issuer = $1 FOR UPDATE`, issuer)
	if err != nil {
		return nil, err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM trusted_issuers WHERE issuer = $1`, issuer); err != nil {
		return nil, fmt.Errorf("delete trusted issuer: %w", err)
	}
	return removed, nil
}

func (s *PostgresStore) FindIssuer(ctx context.Context, issuer domain.Address) (*models.Issuer, error) {
	return s.findIssuer(ctx, txcontext.QuerierFor(ctx, s.db), `WHERE issuer = $1`, issuer)
}

func (s *PostgresStore) FindIssuerByOwner(ctx context.Context, owner domain.Address) (*models.Issuer, error) {
	return s.findIssuer(ctx, txcontext.QuerierFor(ctx, s.db), `WHERE owner = $1`, owner)
}

func (s *PostgresStore) ListIssuers(ctx context.Context) ([]*models.Issuer, error) {
	q := txcontext.QuerierFor(ctx, s.db)
	rows, err := q.QueryContext(ctx, `
		SELECT issuer, owner, created_at FROM trusted_issuers ORDER BY issuer
	`)
	if err != nil {
		return nil, fmt.Errorf("list trusted issuers: %w", err)
	}
	defer rows.Close()

	var (
		issuers []*models.Issuer
		keys    [][]byte
	)
	for rows.Next() {
		iss := &models.Issuer{}
		if err := rows.Scan(&iss.Address, &iss.Owner, &iss.TrustedAt); err != nil {
			return nil, fmt.Errorf("scan trusted issuer: %w", err)
		}
		issuers = append(issuers, iss)
		keys = append(keys, iss.Address.Bytes())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trusted issuers: %w", err)
	}
	if len(issuers) == 0 {
		return issuers, nil
	}

	claims, err := s.claimsFor(ctx, q, keys)
	if err != nil {
		return nil, err
	}
	for _, iss := range issuers {
		iss.ManagedClaims = claims[iss.Address]
		if iss.ManagedClaims == nil {
			iss.ManagedClaims = []domain.ClaimType{}
		}
	}
	return issuers, nil
}

func (s *PostgresStore) GrantClaim(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) error {
	q := txcontext.QuerierFor(ctx, s.db)
	res, err := q.ExecContext(ctx, `
		INSERT INTO issuer_claims (issuer, claim_type)
		SELECT issuer, $2 FROM trusted_issuers WHERE issuer = $1
	`, issuer, claimType)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("claim already granted: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert issuer claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("grant rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("issuer not trusted: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) RevokeClaim(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) error {
	res, err := txcontext.QuerierFor(ctx, s.db).ExecContext(ctx, `
		DELETE FROM issuer_claims WHERE issuer = $1 AND claim_type = $2
	`, issuer, claimType)
	if err != nil {
		return fmt.Errorf("delete issuer claim: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("claim not granted: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) IsAuthorized(ctx context.Context, issuer domain.Address, claimType domain.ClaimType) (bool, error) {
	var ok bool
	err := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM issuer_claims WHERE issuer = $1 AND claim_type = $2
		)
	`, issuer, claimType).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check authorization: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) IsAuthorizedByOwner(ctx context.Context, owner domain.Address, claimType domain.ClaimType) (bool, error) {
	var ok bool
	err := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trusted_issuers t
			JOIN issuer_claims c ON c.issuer = t.issuer
			WHERE t.owner = $1 AND c.claim_type = $2
		)
	`, owner, claimType).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check owner authorization: %w", err)
	}
	return ok, nil
}

func (s *PostgresStore) AuthorizedIssuers(ctx context.Context, claimType domain.ClaimType) ([]domain.Address, error) {
	rows, err := txcontext.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT issuer FROM issuer_claims WHERE claim_type = $1 ORDER BY issuer
	`, claimType)
	if err != nil {
		return nil, fmt.Errorf("list authorized issuers: %w", err)
	}
	defer rows.Close()

	out := []domain.Address{}
	for rows.Next() {
		var addr domain.Address
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan authorized issuer: %w", err)
		}
		out = append(out, addr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authorized issuers: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) findIssuer(ctx context.Context, q txcontext.Querier, where string, arg domain.Address) (*models.Issuer, error) {
	iss := &models.Issuer{}
	err := q.QueryRowContext(ctx, `
		SELECT issuer, owner, created_at FROM trusted_issuers `+where, arg).
		Scan(&iss.Address, &iss.Owner, &iss.TrustedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("issuer not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find trusted issuer: %w", err)
	}

	claims, err := s.claimsFor(ctx, q, [][]byte{iss.Address.Bytes()})
	if err != nil {
		return nil, err
	}
	iss.ManagedClaims = claims[iss.Address]
	if iss.ManagedClaims == nil {
		iss.ManagedClaims = []domain.ClaimType{}
	}
	return iss, nil
}

// claimsFor loads the managed claims of several issuers in one query. The
// comparison is on raw bytes so the (issuer, claim_type) primary key serves it.
func (s *PostgresStore) claimsFor(ctx context.Context, q txcontext.Querier, keys [][]byte) (map[domain.Address][]domain.ClaimType, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT issuer, claim_type FROM issuer_claims
		WHERE issuer = ANY($1::bytea[])
		ORDER BY issuer, claim_type
	`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("list issuer claims: %w", err)
	}
	defer rows.Close()

	out := make(map[domain.Address][]domain.ClaimType, len(keys))
	for rows.Next() {
		var (
			issuer domain.Address
			claim  domain.ClaimType
		)
		if err := rows.Scan(&issuer, &claim); err != nil {
			return nil, fmt.Errorf("scan issuer claim: %w", err)
		}
		out[issuer] = append(out[issuer], claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate issuer claims: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
