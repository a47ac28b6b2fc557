package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jinmel/avs-examples/pkg/agent"
	"github.com/jinmel/avs-examples/pkg/agent/openaiAgent"
	"github.com/jinmel/avs-examples/pkg/clients/aggregatorClient"
	"github.com/jinmel/avs-examples/pkg/clients/priceClient"
	"github.com/jinmel/avs-examples/pkg/config"
	"github.com/jinmel/avs-examples/pkg/execution"
	"github.com/jinmel/avs-examples/pkg/logger"
	"github.com/jinmel/avs-examples/pkg/metrics"
	"github.com/jinmel/avs-examples/pkg/server"
	"github.com/jinmel/avs-examples/pkg/server/executionServer"
	"github.com/jinmel/avs-examples/pkg/shutdown"
	"github.com/jinmel/avs-examples/pkg/signer/inMemorySigner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the execution node",
	RunE: func(cmd *cobra.Command, args []string) error {
		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: Config.Debug})

		if err := Config.Validate(); err != nil {
			return config.NewConfigurationError("", err)
		}

		l.Sugar().Infow("execution node run")

		s, err := inMemorySigner.NewInMemorySigner(Config.PrivateKey)
		if err != nil {
			return err
		}
		l.Sugar().Infow("Loaded signing key", zap.String("performer", s.Address().Hex()))

		m := metrics.NewMetrics("execution")

		aggClient, err := aggregatorClient.NewClient(&aggregatorClient.Config{
			Url:     Config.Aggregator.Url,
			Timeout: Config.Aggregator.Timeout,
		}, l)
		if err != nil {
			return config.NewConfigurationError("aggregator_url", err)
		}

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
			l.Sugar().Warnw("No OpenAI API key configured, agent tasks will be rejected")
			agentProvider = agent.NewUnavailableProvider(
				config.NewConfigurationError("openai_api_key", fmt.Errorf("not set")),
			)
		}

		coordinator, err := execution.NewTaskCoordinator(&execution.TaskCoordinatorConfig{
			Symbol: Config.PriceSource.Symbol,
		}, s, prices, agentProvider, aggClient, m, l)
		if err != nil {
			return fmt.Errorf("failed to create task coordinator: %w", err)
		}

		baseServer, err := server.NewServer(&server.Config{Port: Config.Port}, m, l)
		if err != nil {
			return fmt.Errorf("failed to create http server: %w", err)
		}
		if _, err := executionServer.NewExecutionServer(baseServer, coordinator, l); err != nil {
			return fmt.Errorf("failed to create execution server: %w", err)
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
