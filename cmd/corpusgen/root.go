package corpusgen

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCommand(logger *zap.Logger) *cobra.Command {
	command := &cobra.Command{
		Use:   rootCommandUse,
		Short: rootCommandShort,
	}
	command.AddCommand(newGenerateCommand(logger))
	command.AddCommand(newListCommand())
	command.AddCommand(newServeCommand(logger))
	return command
}

// Execute runs the CLI with the provided process logger.
func Execute(logger *zap.Logger) error {
	return newRootCommand(logger).Execute()
}
