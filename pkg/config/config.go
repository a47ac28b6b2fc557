package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

const (
	DefaultPriceSymbol     = "ETHUSDT"
	DefaultPriceSourceUrl  = "https://api.binance.com"
	DefaultExecutionPort   = 4003
	DefaultValidationPort  = 4002
	DefaultPriceTolerance  = 0.05
	DefaultSimilarityScore = 50.0
)

// Environment variable names used by earlier node deployments. They are
// bound alongside the prefixed names so existing .env files keep working.
const (
	LegacyEnvPrivateKey    = "PRIVATE_KEY"
	LegacyEnvAggregatorUrl = "OTHENTIC_CLIENT_RPC_ADDRESS"
	LegacyEnvOpenAIApiKey  = "OPENAI_API_KEY"
	LegacyEnvPort          = "PORT"
)

func KebabToSnakeCase(str string) string {
	return strings.ReplaceAll(str, "-", "_")
}

func NormalizeFlagName(name string) string {
	return KebabToSnakeCase(name)
}

// EnvName returns the prefixed environment variable for a flag name.
func EnvName(prefix string, flagName string) string {
	return strings.ToUpper(prefix + "_" + KebabToSnakeCase(flagName))
}

// BindEnvWithLegacy binds flagName to its prefixed env var and, with lower
// precedence, to the legacy name.
func BindEnvWithLegacy(prefix string, flagName string, legacy string) error {
	return viper.BindEnv(NormalizeFlagName(flagName), EnvName(prefix, flagName), legacy)
}

// ConfigurationError marks a missing or malformed startup setting. It is
// fatal for the process; handlers only see it when a setting is checked lazily.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Setting == "" {
		return fmt.Sprintf("invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("invalid configuration for '%s': %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func NewConfigurationError(setting string, err error) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Err: err}
}

type AggregatorConfig struct {
	// Url is the JSON-RPC endpoint of the aggregator
	Url     string        `json:"url" yaml:"url"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (ac *AggregatorConfig) Validate() error {
	var allErrors field.ErrorList
	if ac.Url == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("url"), "url is required"))
	} else if err := validateHttpUrl(ac.Url); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("url"), ac.Url, err.Error()))
	}
	if ac.Timeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("timeout"), ac.Timeout, "timeout cannot be negative"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

type PriceSourceConfig struct {
	BaseUrl string        `json:"baseUrl" yaml:"baseUrl"`
	Symbol  string        `json:"symbol" yaml:"symbol"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// RequestsPerSecond limits calls to the ticker API; 0 means unlimited
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty"`
}

func (pc *PriceSourceConfig) Validate() error {
	var allErrors field.ErrorList
	if pc.BaseUrl == "" {
		pc.BaseUrl = DefaultPriceSourceUrl
	}
	if err := validateHttpUrl(pc.BaseUrl); err != nil {
		allErrors = append(allErrors, field.Invalid(field.NewPath("baseUrl"), pc.BaseUrl, err.Error()))
	}
	if pc.Symbol == "" {
		pc.Symbol = DefaultPriceSymbol
	}
	if pc.RequestsPerSecond < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestsPerSecond"), pc.RequestsPerSecond, "requestsPerSecond cannot be negative"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

type AgentConfig struct {
	ApiKey  string `json:"apiKey" yaml:"apiKey"`
	BaseUrl string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`

	// Temperature is only sent to the model when greater than zero
	Temperature float64       `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

func (ac *AgentConfig) Validate() error {
	var allErrors field.ErrorList
	if ac.BaseUrl != "" {
		if err := validateHttpUrl(ac.BaseUrl); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("baseUrl"), ac.BaseUrl, err.Error()))
		}
	}
	if ac.Temperature < 0 || ac.Temperature > 2 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("temperature"), ac.Temperature, "temperature must be between 0 and 2"))
	}
	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func validateHttpUrl(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("url host is required")
	}
	return nil
}
