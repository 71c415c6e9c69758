package corpusgen

const (
	rootCommandUse       = "corpusgen"
	rootCommandShort     = "Generate and serve a natural-language → command training corpus"
	generateCommandUse   = "generate"
	generateCommandShort = "Run every configured pipeline and merge the stores"
	listCommandUse       = "list"
	listCommandShort     = "List configured pipelines"
	serveCommandUse      = "serve"
	serveCommandShort    = "Serve the inference HTTP endpoint"
	defaultConfigPath    = "./config.yaml"
	configFlagName       = "config"
	configFlagUsage      = "Path to unified config.yaml"
	listenFlagName       = "listen"
	listenFlagUsage      = "Listen address for the inference server (overrides config)"

	configurationLoaderInitializationErrorFormat = "initialize configuration loader: %w"
	configurationSourceResolutionErrorFormat     = "resolve configuration source: %w"
	rootConfigurationLoadErrorFormat             = "load root configuration %s: %w"
	missingAPIKeyErrorFormat                     = "missing API key: set %s"
)
