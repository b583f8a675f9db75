package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimsreg/pkg/domain"
)

const ownerHex = "0x9900000000000000000000000000000000000000"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("REGISTRY_OWNER", ownerHex)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, domain.Address{0x99}, cfg.Registry.Owner)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "reject", cfg.Attestation.IssuePolicy)
	assert.Equal(t, 10000, cfg.Attestation.CacheSize)
	assert.Equal(t, 30*time.Second, cfg.Attestation.CacheTTL)
	assert.False(t, cfg.Attestation.SignerBinding)
	assert.Equal(t, "claimsreg.audit", cfg.Kafka.AuditTopic)
	assert.Zero(t, cfg.Audit.Buffer)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("REGISTRY_OWNER", ownerHex)
	t.Setenv("CLAIMS_ADDR", ":9000")
	t.Setenv("CLAIMS_ENV", "production")
	t.Setenv("ADMIN_API_TOKEN", "s3cret")
	t.Setenv("ISSUE_POLICY", "upsert")
	t.Setenv("SIGNER_BINDING", "true")
	t.Setenv("AUDIT_BUFFER", "256")
	t.Setenv("ATTESTATION_CACHE_TTL", "5s")
	t.Setenv("REDIS_POOL_SIZE", "not-a-number")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, "upsert", cfg.Attestation.IssuePolicy)
	assert.True(t, cfg.Attestation.SignerBinding)
	assert.Equal(t, 256, cfg.Audit.Buffer)
	assert.Equal(t, 5*time.Second, cfg.Attestation.CacheTTL)
	assert.Equal(t, 10, cfg.Redis.PoolSize, "unparseable values fall back to defaults")
}

func TestFromEnvValidation(t *testing.T) {
	t.Run("owner required", func(t *testing.T) {
		t.Setenv("REGISTRY_OWNER", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "REGISTRY_OWNER")
	})
	t.Run("null owner rejected", func(t *testing.T) {
		t.Setenv("REGISTRY_OWNER", "0x0000000000000000000000000000000000000000")
		_, err := FromEnv()
		assert.Error(t, err)
	})
	t.Run("admin token required outside development", func(t *testing.T) {
		t.Setenv("REGISTRY_OWNER", ownerHex)
		t.Setenv("CLAIMS_ENV", "production")
		t.Setenv("ADMIN_API_TOKEN", "")
		_, err := FromEnv()
		assert.ErrorContains(t, err, "ADMIN_API_TOKEN")
	})
}
