// Package redis persists attestations as Redis hashes keyed
// attestation:<store ref>:<subject>.
package redis

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"claimsreg/internal/claimstore/models"
	"claimsreg/internal/sentinel"
	"claimsreg/pkg/domain"
)

const (
	keyPrefix = "attestation:"

	fieldClaimType = "claim_type"
	fieldIssuer    = "issuer"
	fieldSignature = "signature"
	fieldIssuedAt  = "issued_at"

	// maxTxRetries bounds optimistic-lock retries when another writer touches the key.
	maxTxRetries = 5
)

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Put writes att inside a WATCH transaction so the existence check and the
// write are atomic against concurrent writers.
func (s *Store) Put(ctx context.Context, att *models.Attestation, overwrite bool) (bool, error) {
	key := attestationKey(att.StoreRef, att.Subject)
	var replaced bool
	txf := func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		replaced = n > 0
		if replaced && !overwrite {
			return fmt.Errorf("attestation exists: %w", sentinel.ErrAlreadyUsed)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, encode(att))
			return nil
		})
		return err
	}
	if err := s.watch(ctx, txf, key); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return false, err
		}
		return false, fmt.Errorf("put attestation: %w", err)
	}
	return replaced, nil
}

func (s *Store) Get(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	fields, err := s.client.HGetAll(ctx, attestationKey(storeRef, subject)).Result()
	if err != nil {
		return nil, fmt.Errorf("get attestation: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
	}
	return decode(storeRef, subject, fields)
}

// Delete removes the hash and returns what it held.
func (s *Store) Delete(ctx context.Context, storeRef, subject domain.Address) (*models.Attestation, error) {
	key := attestationKey(storeRef, subject)
	var removed *models.Attestation
	txf := func(tx *redis.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			return fmt.Errorf("attestation not found: %w", sentinel.ErrNotFound)
		}
		removed, err = decode(storeRef, subject, fields)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}
	if err := s.watch(ctx, txf, key); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("delete attestation: %w", err)
	}
	return removed, nil
}

func (s *Store) watch(ctx context.Context, txf func(*redis.Tx) error, key string) error {
	for range maxTxRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("too much contention on %s: %w", key, sentinel.ErrUnavailable)
}

func attestationKey(storeRef, subject domain.Address) string {
	return keyPrefix + storeRef.String() + ":" + subject.String()
}

func encode(att *models.Attestation) map[string]any {
	return map[string]any{
		fieldClaimType: att.ClaimType.String(),
		fieldIssuer:    att.Issuer.String(),
		fieldSignature: "0x" + hex.EncodeToString(att.Signature),
		fieldIssuedAt:  att.IssuedAt.UTC().Format(time.RFC3339Nano),
	}
}

func decode(storeRef, subject domain.Address, fields map[string]string) (*models.Attestation, error) {
	claimType, err := domain.ParseClaimType(fields[fieldClaimType])
	if err != nil {
		return nil, fmt.Errorf("decode claim type: %w", err)
	}
	issuer, err := domain.ParseAddress(fields[fieldIssuer])
	if err != nil {
		return nil, fmt.Errorf("decode issuer: %w", err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(fields[fieldSignature], "0x"))
	if err != nil {
		return nil, fmt.Errorf("decode signature: %w", err)
	}
	issuedAt, err := time.Parse(time.RFC3339Nano, fields[fieldIssuedAt])
	if err != nil {
		return nil, fmt.Errorf("decode issued_at: %w", err)
	}
	return &models.Attestation{
		StoreRef:  storeRef,
		Subject:   subject,
		ClaimType: claimType,
		Issuer:    issuer,
		Signature: sig,
		IssuedAt:  issuedAt,
	}, nil
}
