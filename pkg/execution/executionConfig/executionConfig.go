package executionConfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"sigs.k8s.io/yaml"
)

const (
	EnvPrefix = "EXECUTION"

	Debug             = "debug"
	Port              = "port"
	PrivateKey        = "private-key"
	AggregatorUrl     = "aggregator-url"
	AggregatorTimeout = "aggregator-timeout"
	PriceSourceUrl    = "price-source-url"
	PriceRateLimit    = "price-requests-per-second"
	PriceSymbol       = "price-symbol"
	AgentApiKey       = "openai-api-key"
	AgentBaseUrl      = "openai-base-url"
	AgentTemperature  = "agent-temperature"
)

// LegacyEnvNames maps flags to the env names older deployments used.
var LegacyEnvNames = map[string]string{
	PrivateKey:    config.LegacyEnvPrivateKey,
	AggregatorUrl: config.LegacyEnvAggregatorUrl,
	AgentApiKey:   config.LegacyEnvOpenAIApiKey,
	Port:          config.LegacyEnvPort,
}

type ExecutionConfig struct {
	Debug       bool                      `json:"debug" yaml:"debug"`
	Port        int                       `json:"port" yaml:"port"`
	PrivateKey  string                    `json:"privateKey" yaml:"privateKey"`
	Aggregator  *config.AggregatorConfig  `json:"aggregator" yaml:"aggregator"`
	PriceSource *config.PriceSourceConfig `json:"priceSource,omitempty" yaml:"priceSource,omitempty"`
	// Agent is optional; without an api key agent tasks are rejected
	Agent *config.AgentConfig `json:"agent,omitempty" yaml:"agent,omitempty"`
}

// Validate fills in defaults and checks every setting. The private key is
// only checked for presence here; it is parsed when the signer is built.
func (ec *ExecutionConfig) Validate() error {
	var allErrors field.ErrorList

	if ec.Port == 0 {
		ec.Port = config.DefaultExecutionPort
	}
	if ec.Port < 0 || ec.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), ec.Port, "port must be between 1 and 65535"))
	}

	if ec.PrivateKey == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("privateKey"), "privateKey is required"))
	}

	if ec.Aggregator == nil {
		allErrors = append(allErrors, field.Required(field.NewPath("aggregator"), "aggregator is required"))
	} else if err := ec.Aggregator.Validate(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("aggregator"), ec.Aggregator.Url, err.Error()))
	}

	if ec.PriceSource == nil {
		ec.PriceSource = &config.PriceSourceConfig{}
	}
	if err := ec.PriceSource.Validate(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("priceSource"), ec.PriceSource.BaseUrl, err.Error()))
	}

	if ec.Agent != nil {
		if err := ec.Agent.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("agent"), ec.Agent.BaseUrl, err.Error()))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (ec *ExecutionConfig) AgentEnabled() bool {
	return ec.Agent != nil && ec.Agent.ApiKey != ""
}

func NewExecutionConfig() *ExecutionConfig {
	return &ExecutionConfig{
		Debug:      viper.GetBool(config.NormalizeFlagName(Debug)),
		Port:       viper.GetInt(config.NormalizeFlagName(Port)),
		PrivateKey: viper.GetString(config.NormalizeFlagName(PrivateKey)),
		Aggregator: &config.AggregatorConfig{
			Url:     viper.GetString(config.NormalizeFlagName(AggregatorUrl)),
			Timeout: viper.GetDuration(config.NormalizeFlagName(AggregatorTimeout)),
		},
		PriceSource: &config.PriceSourceConfig{
			BaseUrl: viper.GetString(config.NormalizeFlagName(PriceSourceUrl)),
			Symbol:  viper.GetString(config.NormalizeFlagName(PriceSymbol)),

			RequestsPerSecond: viper.GetFloat64(config.NormalizeFlagName(PriceRateLimit)),
		},
		Agent: &config.AgentConfig{
			ApiKey:      viper.GetString(config.NormalizeFlagName(AgentApiKey)),
			BaseUrl:     viper.GetString(config.NormalizeFlagName(AgentBaseUrl)),
			Temperature: viper.GetFloat64(config.NormalizeFlagName(AgentTemperature)),
		},
	}
}

func NewExecutionConfigFromYamlBytes(data []byte) (*ExecutionConfig, error) {
	var ec *ExecutionConfig
	if err := yaml.Unmarshal(data, &ec); err != nil {
		return nil, err
	}
	return ec, nil
}

func NewExecutionConfigFromJsonBytes(data []byte) (*ExecutionConfig, error) {
	var ec *ExecutionConfig
	if err := json.Unmarshal(data, &ec); err != nil {
		return nil, err
	}
	return ec, nil
}

// NewExecutionConfigFromFile reads a config file, parsing .json files as JSON and
// anything else as YAML.
func NewExecutionConfigFromFile(path string) (*ExecutionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewExecutionConfigFromJsonBytes(data)
	}
	return NewExecutionConfigFromYamlBytes(data)
}
