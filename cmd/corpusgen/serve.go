package corpusgen

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/corpusgen/internal/serving"
)

type serveCommandOptions struct {
	configPath    string
	listenAddress string
}

func newServeCommand(logger *zap.Logger) *cobra.Command {
	options := &serveCommandOptions{configPath: defaultConfigPath}

	command := &cobra.Command{
		Use:   serveCommandUse,
		Short: serveCommandShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServeCommand(*options, logger)
		},
	}
	command.Flags().StringVar(&options.configPath, configFlagName, defaultConfigPath, configFlagUsage)
	command.Flags().StringVar(&options.listenAddress, listenFlagName, "", listenFlagUsage)
	return command
}

func runServeCommand(options serveCommandOptions, logger *zap.Logger) error {
	rootConfiguration, configurationErr := loadRootConfiguration(options.configPath)
	if configurationErr != nil {
		return configurationErr
	}

	listenAddress := strings.TrimSpace(options.listenAddress)
	if listenAddress == "" {
		listenAddress = rootConfiguration.Serving.Listen
	}

	generator := serving.RemoteGenerator{Endpoint: rootConfiguration.Serving.InferenceEndpoint}
	service, serviceErr := serving.New(generator, logger)
	if serviceErr != nil {
		return serviceErr
	}

	logger.Info("inference server listening",
		zap.String("address", listenAddress),
		zap.String("inference_endpoint", rootConfiguration.Serving.InferenceEndpoint))
	server := &http.Server{Addr: listenAddress, Handler: service.Routes()}
	return server.ListenAndServe()
}
