package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "claimsreg/pkg/domain-errors"
)

// TestParseAddress_Invariants validates the parsing invariant at trust boundaries:
// identifiers are 0x-prefixed hex of exactly the fixed width.
func TestParseAddress_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseAddress("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects missing prefix", func(t *testing.T) {
		_, err := ParseAddress(strings.Repeat("ab", 20))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong width", func(t *testing.T) {
		_, err := ParseAddress("0x" + strings.Repeat("ab", 19))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non-hex", func(t *testing.T) {
		_, err := ParseAddress("0x" + strings.Repeat("zz", 20))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts mixed case and normalizes to lowercase", func(t *testing.T) {
		a, err := ParseAddress("0x" + strings.Repeat("aB", 20))
		require.NoError(t, err)
		assert.Equal(t, "0x"+strings.Repeat("ab", 20), a.String())
	})

	t.Run("null address parses and reports IsNil", func(t *testing.T) {
		a, err := ParseAddress("0x" + strings.Repeat("00", 20))
		require.NoError(t, err)
		assert.True(t, a.IsNil())
	})
}

func TestParseClaimType(t *testing.T) {
	c, err := ParseClaimType("0x" + strings.Repeat("01", 32))
	require.NoError(t, err)
	assert.False(t, c.IsNil())
	assert.Equal(t, byte(1), c[31])

	_, err = ParseClaimType("0x" + strings.Repeat("01", 20))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestAddressFromBytes(t *testing.T) {
	_, err := AddressFromBytes(make([]byte, 19))
	require.Error(t, err)

	raw := make([]byte, 20)
	raw[19] = 0x42
	a, err := AddressFromBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), a[19])
}

func TestJSONRoundTripUsesCanonicalHex(t *testing.T) {
	type payload struct {
		Issuer Address   `json:"issuer"`
		Claim  ClaimType `json:"claim"`
	}
	in := payload{Issuer: Address{0x01}, Claim: ClaimType{0x02}}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"issuer":"0x01`)

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestAddressSQLRoundTrip(t *testing.T) {
	a := Address{0xaa, 0xbb}
	v, err := a.Value()
	require.NoError(t, err)

	var scanned Address
	require.NoError(t, scanned.Scan(v))
	assert.Equal(t, a, scanned)
}

func TestNullIdentifiersMapToSQLNull(t *testing.T) {
	v, err := Address{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	c := ClaimType{0x01}
	require.NoError(t, c.Scan(nil))
	assert.True(t, c.IsNil())
}

func TestScanRejectsWrongWidth(t *testing.T) {
	var c ClaimType
	assert.Error(t, c.Scan([]byte{0x01, 0x02}))
	assert.Error(t, c.Scan("0x01"))
}
