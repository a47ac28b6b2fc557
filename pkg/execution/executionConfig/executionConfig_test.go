package executionConfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlValid = `
debug: true
port: 5003
privateKey: "0x3dd7c381f27775d9945f0fcf5bb914484c4d01681824603c71dd762259f43214"
aggregator:
  url: "http://aggregator:8545"
  timeout: 5000000000
priceSource:
  baseUrl: "http://prices:8080"
  symbol: "BTCUSDT"
agent:
  apiKey: "sk-test"
  temperature: 0.7
`

const jsonValid = `{
  "privateKey": "3dd7c381f27775d9945f0fcf5bb914484c4d01681824603c71dd762259f43214",
  "aggregator": {"url": "https://aggregator.example.com"}
}`

func Test_ExecutionConfig(t *testing.T) {
	t.Run("YAML", func(t *testing.T) {
		t.Run("Should parse a valid yaml config", func(t *testing.T) {
			ec, err := NewExecutionConfigFromYamlBytes([]byte(yamlValid))
			require.NoError(t, err)
			require.NoError(t, ec.Validate())

			assert.True(t, ec.Debug)
			assert.Equal(t, 5003, ec.Port)
			assert.Equal(t, "http://aggregator:8545", ec.Aggregator.Url)
			assert.Equal(t, 5*time.Second, ec.Aggregator.Timeout)
			assert.Equal(t, "BTCUSDT", ec.PriceSource.Symbol)
			assert.True(t, ec.AgentEnabled())
			assert.Equal(t, 0.7, ec.Agent.Temperature)
		})
		t.Run("Should fail to parse malformed yaml", func(t *testing.T) {
			_, err := NewExecutionConfigFromYamlBytes([]byte("port: [1, 2"))
			assert.Error(t, err)
		})
	})

	t.Run("JSON", func(t *testing.T) {
		t.Run("Should apply defaults", func(t *testing.T) {
			ec, err := NewExecutionConfigFromJsonBytes([]byte(jsonValid))
			require.NoError(t, err)
			require.NoError(t, ec.Validate())

			assert.Equal(t, config.DefaultExecutionPort, ec.Port)
			assert.Equal(t, config.DefaultPriceSourceUrl, ec.PriceSource.BaseUrl)
			assert.Equal(t, config.DefaultPriceSymbol, ec.PriceSource.Symbol)
			assert.False(t, ec.AgentEnabled())
		})
	})

	t.Run("Validate", func(t *testing.T) {
		t.Run("Should require the private key and aggregator", func(t *testing.T) {
			err := (&ExecutionConfig{}).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "privateKey is required")
			assert.Contains(t, err.Error(), "aggregator is required")
		})
		t.Run("Should reject an invalid aggregator url and port", func(t *testing.T) {
			err := (&ExecutionConfig{
				Port:       70000,
				PrivateKey: "abc",
				Aggregator: &config.AggregatorConfig{Url: "localhost"},
			}).Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "port")
			assert.Contains(t, err.Error(), "aggregator")
		})
	})
}

func Test_NewExecutionConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv(config.LegacyEnvPrivateKey, "legacy-key")
	t.Setenv("EXECUTION_AGGREGATOR_URL", "http://aggregator:8545")
	t.Setenv(config.LegacyEnvAggregatorUrl, "http://ignored:8545")
	for flag, legacy := range LegacyEnvNames {
		require.NoError(t, config.BindEnvWithLegacy(EnvPrefix, flag, legacy))
	}
	viper.Set(config.NormalizeFlagName(PriceSymbol), "ETHUSDT")

	ec := NewExecutionConfig()
	assert.Equal(t, "legacy-key", ec.PrivateKey)
	assert.Equal(t, "http://aggregator:8545", ec.Aggregator.Url)
	assert.Equal(t, "ETHUSDT", ec.PriceSource.Symbol)
	assert.False(t, ec.AgentEnabled())
}

func Test_NewExecutionConfigFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("Should parse a yaml file", func(t *testing.T) {
		path := filepath.Join(dir, "execution.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlValid), 0o600))

		c, err := NewExecutionConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 5003, c.Port)
		assert.Equal(t, "http://aggregator:8545", c.Aggregator.Url)
		assert.Equal(t, 5*time.Second, c.Aggregator.Timeout)
	})

	t.Run("Should parse a json file by extension", func(t *testing.T) {
		path := filepath.Join(dir, "execution.JSON")
		require.NoError(t, os.WriteFile(path, []byte(`{"port":6003,"privateKey":"0xabc","aggregator":{"url":"http://agg:8545"}}`), 0o600))

		c, err := NewExecutionConfigFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, 6003, c.Port)
		assert.Equal(t, "http://agg:8545", c.Aggregator.Url)
	})

	t.Run("Should fail on a missing file", func(t *testing.T) {
		_, err := NewExecutionConfigFromFile(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})
}
