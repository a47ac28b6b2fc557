package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/execution/executionConfig"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "execution",
	Short: "Produce, sign and submit AVS task results",
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var configFile string
var Config *executionConfig.ExecutionConfig

func init() {
	cobra.OnInitialize(initConfigIfPresent)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	initConfig(rootCmd)

	rootCmd.PersistentFlags().Bool(executionConfig.Debug, false, `"true" or "false"`)
	rootCmd.PersistentFlags().Int(executionConfig.Port, config.DefaultExecutionPort, "HTTP port to listen on")
	rootCmd.PersistentFlags().String(executionConfig.PrivateKey, "", "Hex encoded ECDSA private key used to sign task results")
	rootCmd.PersistentFlags().String(executionConfig.AggregatorUrl, "", "Aggregator JSON-RPC endpoint")
	rootCmd.PersistentFlags().Duration(executionConfig.AggregatorTimeout, 0, "Aggregator request timeout, 0 for none")
	rootCmd.PersistentFlags().String(executionConfig.PriceSourceUrl, config.DefaultPriceSourceUrl, "Price ticker API base url")
	rootCmd.PersistentFlags().Float64(executionConfig.PriceRateLimit, 0, "Maximum price requests per second, 0 for no limit")
	rootCmd.PersistentFlags().String(executionConfig.PriceSymbol, config.DefaultPriceSymbol, "Symbol to quote")
	rootCmd.PersistentFlags().String(executionConfig.AgentApiKey, "", "OpenAI API key, agent tasks are disabled without it")
	rootCmd.PersistentFlags().String(executionConfig.AgentBaseUrl, "", "OpenAI compatible API base url")
	rootCmd.PersistentFlags().Float64(executionConfig.AgentTemperature, 0, "Sampling temperature, 0 for the model default")

	// setup sub commands
	rootCmd.AddCommand(runCmd)

	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		key := config.KebabToSnakeCase(f.Name)
		viper.BindPFlag(key, f) //nolint:errcheck
		if legacy, ok := executionConfig.LegacyEnvNames[f.Name]; ok {
			config.BindEnvWithLegacy(executionConfig.EnvPrefix, f.Name, legacy) //nolint:errcheck
		} else {
			viper.BindEnv(key) //nolint:errcheck
		}
	})
}

func initConfig(cmd *cobra.Command) {
	viper.SetEnvPrefix(executionConfig.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()
}

func initConfigIfPresent() {
	if configFile != "" {
		fmt.Printf("Using config file: %s\n", configFile)
		c, err := executionConfig.NewExecutionConfigFromFile(configFile)
		if err != nil {
			panic(err)
		}
		Config = c
		return
	}
	Config = executionConfig.NewExecutionConfig()
}

func main() {
	Execute()
}
