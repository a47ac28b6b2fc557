package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/jinmel/avs-examples/pkg/agent/openaiAgent"
	"github.com/jinmel/avs-examples/pkg/clients/priceClient"
	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/logger"
	"github.com/jinmel/avs-examples/pkg/metrics"
	"github.com/jinmel/avs-examples/pkg/server"
	"github.com/jinmel/avs-examples/pkg/server/validationServer"
	"github.com/jinmel/avs-examples/pkg/shutdown"
	"github.com/jinmel/avs-examples/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the validation node",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: Config.Debug})

		if err := Config.Validate(); err != nil {
			return config.NewConfigurationError("", err)
		}

		l.Sugar().Infow("validation node run",
			zap.Float64("priceTolerance", Config.PriceTolerance),
			zap.Float64("similarityThreshold", Config.SimilarityThreshold),
		)

		m := metrics.NewMetrics("validation")

		prices, err := priceClient.NewClient(&priceClient.Config{
			BaseUrl: Config.PriceSource.BaseUrl,
			Timeout: Config.PriceSource.Timeout,

			RequestsPerSecond: Config.PriceSource.RequestsPerSecond,
		}, l)
		if err != nil {
			return config.NewConfigurationError("price_source_url", err)
		}

		var agentProvider agent.IAgentProvider
		if Config.AgentEnabled() {
			agentProvider, err = openaiAgent.NewProvider(&openaiAgent.Config{
				ApiKey:      Config.Agent.ApiKey,
				BaseUrl:     Config.Agent.BaseUrl,
				Temperature: Config.Agent.Temperature,
				Timeout:     Config.Agent.Timeout,
			}, l)
			if err != nil {
				return config.NewConfigurationError("openai_api_key", err)
			}
		} else {
			l.Sugar().Warnw("No OpenAI API key configured, agent validation will fail")
			agentProvider = agent.NewUnavailableProvider(
				config.NewConfigurationError("openai_api_key", fmt.Errorf("OpenAI API key not configured")),
			)
		}

		voter, err := validation.NewVoter(&validation.VoterConfig{
			Symbol:              Config.PriceSource.Symbol,
			PriceTolerance:      Config.PriceTolerance,
			SimilarityThreshold: Config.SimilarityThreshold,
		}, prices, agentProvider, m, l)
		if err != nil {
			return fmt.Errorf("failed to create voter: %w", err)
		}

		baseServer, err := server.NewServer(&server.Config{Port: Config.Port}, m, l)
		if err != nil {
			return fmt.Errorf("failed to create http server: %w", err)
		}
		if _, err := validationServer.NewValidationServer(baseServer, voter, l); err != nil {
			return fmt.Errorf("failed to create validation server: %w", err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		serverDone := make(chan struct{})

		go func() {
			defer close(serverDone)
			if err := baseServer.Start(ctx); err != nil {
				l.Sugar().Fatal("Failed to start HTTP server", zap.Error(err))
			}
		}()

		gracefulShutdownNotifier := shutdown.CreateGracefulShutdownChannel()
		done := make(chan bool, 1)
		shutdown.ListenForShutdown(gracefulShutdownNotifier, done, func() {
			l.Sugar().Info("Shutting down...")
			cancel()
			<-serverDone
		}, time.Second*5, l)
		return nil
	},
}
