package validationConfig

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
	EnvPrefix = "VALIDATION"

	Debug               = "debug"
	Port                = "port"
	PriceSourceUrl      = "price-source-url"
	PriceRateLimit      = "price-requests-per-second"
	PriceSymbol         = "price-symbol"
	PriceTolerance      = "price-tolerance"
	SimilarityThreshold = "similarity-threshold"
	AgentApiKey         = "openai-api-key"
	AgentBaseUrl        = "openai-base-url"
	AgentTemperature    = "agent-temperature"
)

var LegacyEnvNames = map[string]string{
	AgentApiKey: config.LegacyEnvOpenAIApiKey,
	Port:        config.LegacyEnvPort,
}

type ValidationConfig struct {
	Debug       bool                      `json:"debug" yaml:"debug"`
	Port        int                       `json:"port" yaml:"port"`
	PriceSource *config.PriceSourceConfig `json:"priceSource,omitempty" yaml:"priceSource,omitempty"`
	// PriceTolerance is the accepted relative deviation from the reference price
	PriceTolerance      float64             `json:"priceTolerance,omitempty" yaml:"priceTolerance,omitempty"`
	SimilarityThreshold float64             `json:"similarityThreshold,omitempty" yaml:"similarityThreshold,omitempty"`
	Agent               *config.AgentConfig `json:"agent,omitempty" yaml:"agent,omitempty"`
}

func (vc *ValidationConfig) Validate() error {
	var allErrors field.ErrorList

	if vc.Port == 0 {
		vc.Port = config.DefaultValidationPort
	}
	if vc.Port < 0 || vc.Port > 65535 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("port"), vc.Port, "port must be between 1 and 65535"))
	}

	if vc.PriceSource == nil {
		vc.PriceSource = &config.PriceSourceConfig{}
	}
	if err := vc.PriceSource.Validate(); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("priceSource"), vc.PriceSource.BaseUrl, err.Error()))
	}

	if vc.PriceTolerance == 0 {
		vc.PriceTolerance = config.DefaultPriceTolerance
	}
	if vc.PriceTolerance < 0 || vc.PriceTolerance >= 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("priceTolerance"), vc.PriceTolerance, "priceTolerance must be in (0, 1)"))
	}

	if vc.SimilarityThreshold == 0 {
		vc.SimilarityThreshold = config.DefaultSimilarityScore
	}
	if vc.SimilarityThreshold < 0 || vc.SimilarityThreshold > 100 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("similarityThreshold"), vc.SimilarityThreshold, "similarityThreshold must be between 0 and 100"))
	}

	if vc.Agent != nil {
		if err := vc.Agent.Validate(); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("agent"), vc.Agent.BaseUrl, err.Error()))
		}
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func (vc *ValidationConfig) AgentEnabled() bool {
	return vc.Agent != nil && vc.Agent.ApiKey != ""
}

func NewValidationConfig() *ValidationConfig {
	return &ValidationConfig{
		Debug: viper.GetBool(config.NormalizeFlagName(Debug)),
		Port:  viper.GetInt(config.NormalizeFlagName(Port)),
		PriceSource: &config.PriceSourceConfig{
			BaseUrl: viper.GetString(config.NormalizeFlagName(PriceSourceUrl)),
			Symbol:  viper.GetString(config.NormalizeFlagName(PriceSymbol)),

			RequestsPerSecond: viper.GetFloat64(config.NormalizeFlagName(PriceRateLimit)),
		},
		PriceTolerance:      viper.GetFloat64(config.NormalizeFlagName(PriceTolerance)),
		SimilarityThreshold: viper.GetFloat64(config.NormalizeFlagName(SimilarityThreshold)),
		Agent: &config.AgentConfig{
			ApiKey:      viper.GetString(config.NormalizeFlagName(AgentApiKey)),
			BaseUrl:     viper.GetString(config.NormalizeFlagName(AgentBaseUrl)),
			Temperature: viper.GetFloat64(config.NormalizeFlagName(AgentTemperature)),
		},
	}
}

func NewValidationConfigFromYamlBytes(data []byte) (*ValidationConfig, error) {
	var vc *ValidationConfig
	if err := yaml.Unmarshal(data, &vc); err != nil {
		return nil, err
	}
	return vc, nil
}

func NewValidationConfigFromJsonBytes(data []byte) (*ValidationConfig, error) {
	var vc *ValidationConfig
	if err := json.Unmarshal(data, &vc); err != nil {
		return nil, err
	}
	return vc, nil
}

// NewValidationConfigFromFile reads a config file, parsing .json files as JSON and
// anything else as YAML.
func NewValidationConfigFromFile(path string) (*ValidationConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return NewValidationConfigFromJsonBytes(data)
	}
	return NewValidationConfigFromYamlBytes(data)
}
