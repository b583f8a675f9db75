// Package postgres persists attestations in the attestations table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
	txcontext "claimsreg/pkg/platform/tx"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Put inserts att. With overwrite the row is upserted and replaced reports
// whether a previous row existed (xmax is non-zero for updated rows).
func (s *Store) Put(ctx context.Context, att *models.Attestation, overwrite bool) (bool, error) {
	q := txcontext.QuerierFor(ctx, s.db)
	if !overwrite {
		res, err := q.ExecContext(ctx, `
			INSERT INTO attestations (store_ref, subject, claim_type, issuer, signature, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (store_ref, subject) DO NOTHING
		`, att.StoreRef, att.Subject, att.ClaimType, att.Issuer, att.Signature, att.IssuedAt)
		if err != nil {
			return false, fmt.Errorf("insert attestation: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("insert attestation: %w", err)
		}
		if n == 0 {
			return false, fmt.Errorf("attestation exists: %w", sentinel.ErrAlreadyUsed)
		}
		return false, nil
	}

	var replaced bool
	err := q.QueryRowContext(ctx, `
		INSERT INTO attestations (store_ref, subject, claim_type, issuer, signature, issued_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (store_ref, subject) DO UPDATE
		SET claim_type = EXCLUDED.claim_type,
		    issuer     = EXCLUDED.issuer,
		    signature  = EXCLUDED.signature,
		    issued_at  = EXCLUDED.issued_at
		RETURNING (xmax <> 0)
	`, att.StoreRef, att.Subject, att.ClaimType, att.Issuer, att.Signature, att.IssuedAt).Scan(&replaced)
	if err != nil {
		return false, fmt.Errorf("upsert attestation: %w", err)
	}
	return replaced, nil
}

func (s *Store) Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	row := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		SELECT store_ref, subject, claim_type, issuer, signature, issued_at
		FROM attestations
		WHERE store_ref = $1 AND subject = $2
	`, storeRef, subject)
	att, err := scanAttestation(row)
	if err != nil {
		return nil, fmt.Errorf("find attestation: %w", err)
	}
	return att, nil
}

func (s *Store) Delete(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	row := txcontext.QuerierFor(ctx, s.db).QueryRowContext(ctx, `
		DELETE FROM attestations
		WHERE store_ref = $1 AND subject = $2
		RETURNING store_ref, subject, claim_type, issuer, signature, issued_at
	`, storeRef, subject)
	att, err := scanAttestation(row)
	if err != nil {
		return nil, fmt.Errorf("delete attestation: %w", err)
	}
	return att, nil
}

func scanAttestation(row *sql.Row) (*models.Attestation, error) {
	att := &models.Attestation{}
	err := row.Scan(&att.StoreRef, &att.Subject, &att.ClaimType, &att.Issuer, &att.Signature, &att.IssuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	att.IssuedAt = att.IssuedAt.UTC()
	return att, nil
}
