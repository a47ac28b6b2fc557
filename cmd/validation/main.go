package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/validation/validationConfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "validation",
	Short: "Validate AVS task results and cast votes",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var configFile string
var Config *validationConfig.ValidationConfig

func init() {
	cobra.OnInitialize(initConfigIfPresent)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(validationConfig.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().Int(validationConfig.Port, config.DefaultValidationPort, "HTTP port to listen on")
	rootCmd.PersistentFlags().String(validationConfig.PriceSourceUrl, config.DefaultPriceSourceUrl, "Price ticker API base url")
	rootCmd.PersistentFlags().Float64(validationConfig.PriceRateLimit, 0, "Maximum price requests per second, 0 for no limit")
	rootCmd.PersistentFlags().String(validationConfig.PriceSymbol, config.DefaultPriceSymbol, "Symbol of the reference price")
	rootCmd.PersistentFlags().Float64(validationConfig.PriceTolerance, config.DefaultPriceTolerance, "Accepted relative deviation from the reference price")
	rootCmd.PersistentFlags().Float64(validationConfig.SimilarityThreshold, config.DefaultSimilarityScore, "Minimum similarity score for agent responses")
	rootCmd.PersistentFlags().String(validationConfig.AgentApiKey, "", "OpenAI API key, agent validation is disabled without it")
	rootCmd.PersistentFlags().String(validationConfig.AgentBaseUrl, "", "OpenAI compatible API base url")
	rootCmd.PersistentFlags().Float64(validationConfig.AgentTemperature, 0, "Sampling temperature, 0 for the model default")

	// setup sub commands
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		if legacy, ok := validationConfig.LegacyEnvNames[f.Name]; ok {
			config.BindEnvWithLegacy(validationConfig.EnvPrefix, f.Name, legacy) //nolint:errcheck
		} else {
			viper.BindEnv(key) //nolint:errcheck
		}
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(validationConfig.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func initConfigIfPresent() {
	if configFile != "" {
		fmt.Printf("Using config file: %s\n", configFile)
		c, err := validationConfig.NewValidationConfigFromFile(configFile)
		if err != nil {
			panic(err)
		}
		Config = c
		return
	}
	Config = validationConfig.NewValidationConfig()
}

func main() {
	Execute()
}
