package config

import (
	"errors"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KebabToSnakeCase(t *testing.T) {
	assert.Equal(t, "aggregator_url", KebabToSnakeCase("aggregator-url"))
	assert.Equal(t, "debug", KebabToSnakeCase("debug"))
}

func Test_AggregatorConfig(t *testing.T) {
	t.Run("Should require a url", func(t *testing.T) {
		err := (&AggregatorConfig{}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "url is required")
	})
	t.Run("Should reject a non http url", func(t *testing.T) {
		err := (&AggregatorConfig{Url: "ftp://aggregator:8545"}).Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scheme")
	})
	t.Run("Should accept a valid url", func(t *testing.T) {
		assert.NoError(t, (&AggregatorConfig{Url: "http://localhost:8545"}).Validate())
	})
}

func Test_PriceSourceConfig(t *testing.T) {
	t.Run("Should apply defaults", func(t *testing.T) {
		pc := &PriceSourceConfig{}
		require.NoError(t, pc.Validate())
		assert.Equal(t, DefaultPriceSourceUrl, pc.BaseUrl)
		assert.Equal(t, DefaultPriceSymbol, pc.Symbol)
	})
	t.Run("Should reject an invalid base url", func(t *testing.T) {
		pc := &PriceSourceConfig{BaseUrl: "not a url"}
		assert.Error(t, pc.Validate())
	})
}

func Test_AgentConfig(t *testing.T) {
	assert.NoError(t, (&AgentConfig{ApiKey: "sk-test"}).Validate())
	assert.Error(t, (&AgentConfig{Temperature: 3}).Validate())
}

func Test_ConfigurationError(t *testing.T) {
	inner := errors.New("bad hex")
	err := NewConfigurationError("private_key", inner)
	assert.Equal(t, "invalid configuration for 'private_key': bad hex", err.Error())
	assert.ErrorIs(t, err, inner)

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(error(err), &cfgErr))
}

func Test_BindEnvWithLegacy(t *testing.T) {
	t.Run("Should fall back to the legacy name", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", "legacy")
		require.NoError(t, BindEnvWithLegacy("TESTNODE", "private-key", LegacyEnvPrivateKey))
		assert.Equal(t, "legacy", viper.GetString("private_key"))
	})
	t.Run("Should prefer the prefixed name", func(t *testing.T) {
		t.Setenv("PRIVATE_KEY", "legacy")
		t.Setenv("TESTNODE_PRIVATE_KEY", "prefixed")
		require.NoError(t, BindEnvWithLegacy("TESTNODE", "private-key", LegacyEnvPrivateKey))
		assert.Equal(t, "prefixed", viper.GetString("private_key"))
	})
	assert.Equal(t, "TESTNODE_AGGREGATOR_URL", EnvName("TESTNODE", "aggregator-url"))
}
