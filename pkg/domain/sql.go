package domain

import (
	"database/sql/driver"
	"fmt"
)

// Identifiers are stored as BYTEA. The null identity maps to SQL NULL so
// optional columns stay queryable with IS NULL.

func (a Address) Value() (driver.Value, error) {
	if a.IsNil() {
		return nil, nil
	}
	return a.Bytes(), nil
}

func (a *Address) Scan(src any) error {
	return scanFixed(src, a[:], "address")
}

func (c ClaimType) Value() (driver.Value, error) {
	if c.IsNil() {
		return nil, nil
	}
	return c.Bytes(), nil
}

func (c *ClaimType) Scan(src any) error {
	return scanFixed(src, c[:], "claim type")
}

func scanFixed(src any, dst []byte, label string) error {
	switch v := src.(type) {
	case nil:
		clear(dst)
		return nil
	case []byte:
		if len(v) != len(dst) {
			return fmt.Errorf("scan %s: expected %d bytes, got %d", label, len(dst), len(v))
		}
		copy(dst, v)
		return nil
	default:
		return fmt.Errorf("scan %s: unsupported type %T", label, src)
	}
}
