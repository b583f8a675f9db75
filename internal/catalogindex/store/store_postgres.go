package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"claimsreg/internal/catalogindex/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	txcontext "claimsreg/pkg/platform/tx"
)

// PostgresStore keeps bindings in claim_stores. Both columns are unique, so
// the bijection is enforced by the schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Bind(ctx context.Context, b *models.Binding) error {
	_, err := txcontext.QuerierFor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO claim_stores (claim_type, store_ref, registered_at)
		VALUES ($1, $2, $3)
	`, b.ClaimType, b.StoreRef, b.RegisteredAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("claim type or store ref already bound: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("insert binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) Unbind(ctx context.Context, claimType domain.ClaimType) (*models.Binding, error) {
	row := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		DELETE FROM claim_stores WHERE claim_type = $1
		RETURNING claim_type, store_ref, registered_at
	`, claimType)
	b, err := scanBinding(row)
	if err != nil {
		return nil, fmt.Errorf("delete binding: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) FindByClaim(ctx context.Context, claimType domain.ClaimType) (*models.Binding, error) {
	row := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT claim_type, store_ref, registered_at FROM claim_stores WHERE claim_type = $1
	`, claimType)
	b, err := scanBinding(row)
	if err != nil {
		return nil, fmt.Errorf("find binding by claim: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) FindByRef(ctx context.Context, storeRef domain.Address) (*models.Binding, error) {
	row := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT claim_type, store_ref, registered_at FROM claim_stores WHERE store_ref = $1
	`, storeRef)
	b, err := scanBinding(row)
	if err != nil {
		return nil, fmt.Errorf("find binding by store ref: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Binding, error) {
	rows, err := txcontext.QuerierFor(ctx, s.db).QueryContext(ctx, `
		SELECT claim_type, store_ref, registered_at FROM claim_stores ORDER BY claim_type
	`)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	out := []*models.Binding{}
	for rows.Next() {
		b := &models.Binding{}
		if err := rows.Scan(&b.ClaimType, &b.StoreRef, &b.RegisteredAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		b.RegisteredAt = b.RegisteredAt.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bindings: %w", err)
	}
	return out, nil
}

func scanBinding(row *sql.Row) (*models.Binding, error) {
	b := &models.Binding{}
	if err := row.Scan(&b.ClaimType, &b.StoreRef, &b.RegisteredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	b.RegisteredAt = b.RegisteredAt.UTC()
	return b, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
