package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteEnvVars(t *testing.T) {
	os.Setenv("ONERA_TEST_VAR", "resolved")
	defer os.Unsetenv("ONERA_TEST_VAR")

	assert.Equal(t, "resolved", SubstituteEnvVars("${ONERA_TEST_VAR}"))
	assert.Equal(t, "fallback", SubstituteEnvVars("${ONERA_UNSET_VAR:fallback}"))
	assert.Equal(t, "", SubstituteEnvVars("${ONERA_UNSET_VAR}"))
	assert.Equal(t, "plain text", SubstituteEnvVars("plain text"))
}

func TestSubstituteEnvVarsInConfig(t *testing.T) {
	os.Setenv("ONERA_TEST_BUNDLE_PATH", "/secure/trust.pem")
	defer os.Unsetenv("ONERA_TEST_BUNDLE_PATH")

	cfg := validConfig()
	cfg.Attestation.TrustRootBundle = "${ONERA_TEST_BUNDLE_PATH}"

	SubstituteEnvVarsInConfig(cfg)

	assert.Equal(t, "/secure/trust.pem", cfg.Attestation.TrustRootBundle)
}

func TestGetEnvironment(t *testing.T) {
	os.Unsetenv("ONERA_ENV")
	os.Unsetenv("ENVIRONMENT")
	assert.Equal(t, "development", GetEnvironment())

	os.Setenv("ONERA_ENV", "Production")
	defer os.Unsetenv("ONERA_ENV")
	assert.Equal(t, "production", GetEnvironment())
	assert.True(t, IsProduction())
	assert.False(t, IsDevelopment())
}
