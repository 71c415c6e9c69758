package corpusgen

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/corpusgen/internal/config"
	"github.com/temirov/corpusgen/internal/fsops"
	"github.com/temirov/corpusgen/internal/gate"
	"github.com/temirov/corpusgen/internal/llm"
	"github.com/temirov/corpusgen/internal/pipeline"
	"github.com/temirov/corpusgen/internal/store"
)

type generateCommandOptions struct {
	configPath string
}

func newGenerateCommand(logger *zap.Logger) *cobra.Command {
	options := &generateCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   generateCommandUse,
		Short: generateCommandShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateCommand(cmd, *options, logger)
		},
	}
	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	return command
}

func runGenerateCommand(command *cobra.Command, options generateCommandOptions, logger *zap.Logger) error {
	rootConfiguration, configurationErr := loadRootConfiguration(options.configPath)
	if configurationErr != nil {
		return configurationErr
	}

	// Missing credentials are fatal before any pipeline runs.
	apiKeyEnvironmentVariable := rootConfiguration.Common.API.APIKeyEnv
	apiKey := strings.TrimSpace(os.Getenv(apiKeyEnvironmentVariable))
	if apiKey == "" {
		return fmt.Errorf(missingAPIKeyErrorFormat, apiKeyEnvironmentVariable)
	}

	orchestrator := buildOrchestrator(rootConfiguration, apiKey, logger)
	summary, runErr := orchestrator.Run(command.Context())
	if runErr != nil {
		return runErr
	}

	outputWriter := command.OutOrStdout()
	for _, result := range summary.Pipelines {
		if _, writeErr := fmt.Fprintf(outputWriter, "%s\t%d/%d\n", result.Name, result.FinalCount, result.Target); writeErr != nil {
			return fmt.Errorf("write pipeline summary: %w", writeErr)
		}
	}
	if _, writeErr := fmt.Fprintf(outputWriter, "merged\t%d → %s\n", summary.MergedTotal, rootConfiguration.MergedOutput); writeErr != nil {
		return fmt.Errorf("write merge summary: %w", writeErr)
	}
	if rootConfiguration.SeedInput != "" {
		if _, writeErr := fmt.Fprintf(outputWriter, "grand total\t%d (seed %d)\n", summary.MergedTotal+summary.SeedCount, summary.SeedCount); writeErr != nil {
			return fmt.Errorf("write grand total: %w", writeErr)
		}
	}
	return nil
}

func buildOrchestrator(rootConfiguration config.Root, apiKey string, logger *zap.Logger) pipeline.Orchestrator {
	recordStore := store.New(fsops.NewOS())
	client := llm.Client{
		HTTPBaseURL:     rootConfiguration.Common.API.Endpoint,
		APIKey:          apiKey,
		ModelIdentifier: rootConfiguration.Common.API.Model,
		RequestTimeout:  rootConfiguration.RequestTimeout(),
		Logger:          logger,
	}
	runner := pipeline.Runner{
		Client:    client,
		Gate:      gate.New(rootConfiguration.Common.Defaults.Concurrency),
		Store:     recordStore,
		Logger:    logger,
		RateDelay: rootConfiguration.RateDelay(),
		MaxTokens: rootConfiguration.Common.Defaults.MaxCompletionTokens,
	}
	return pipeline.Orchestrator{
		Runner:       runner,
		Store:        recordStore,
		Specs:        pipeline.SpecsFromConfig(rootConfiguration.Pipelines),
		MergedOutput: rootConfiguration.MergedOutput,
		SeedInput:    rootConfiguration.SeedInput,
		Logger:       logger,
	}
}
