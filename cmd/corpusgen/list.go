package corpusgen

import (
	"fmt"

	"github.com/spf13/cobra"
)

type listCommandOptions struct {
	configPath string
}

func newListCommand() *cobra.Command {
	options := &listCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   listCommandUse,
		Short: listCommandShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListCommand(cmd, *options)
		},
	}
	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	return command
}

func runListCommand(command *cobra.Command, options listCommandOptions) error {
	rootConfiguration, configurationErr := loadRootConfiguration(options.configPath)
	if configurationErr != nil {
		return configurationErr
	}

	outputWriter := command.OutOrStdout()
	for _, pipelineConfiguration := range rootConfiguration.Pipelines {
		_, writeErr := fmt.Fprintf(outputWriter, "%s\t(target=%d, batch=%d, output=%s)\n",
			pipelineConfiguration.Name, pipelineConfiguration.Target, pipelineConfiguration.BatchSize, pipelineConfiguration.Output)
		if writeErr != nil {
			return fmt.Errorf("write pipeline listing: %w", writeErr)
		}
	}
	return nil
}
