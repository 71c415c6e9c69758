package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	emptyPipelinesErrorMessage               = "config.pipelines is empty"
	rootConfigurationEmptyContentErrorFormat = "root configuration %s is empty"
	rootConfigurationUnmarshalErrorFormat    = "unmarshal root configuration %s: %w"
	duplicatePipelineNameErrorFormat         = "duplicate pipeline name %q"
	pipelineNameMissingErrorFormat           = "pipelines[%d]: name is required"
	pipelineOutputMissingErrorFormat         = "pipeline %q: output is required"
	pipelinePromptMissingErrorFormat         = "pipeline %q: prompt is required"
	pipelineTargetInvalidErrorFormat         = "pipeline %q: target must be positive, got %d"
	pipelineBatchInvalidErrorFormat          = "pipeline %q: batch_size must be positive and at most target, got %d (target %d)"

	defaultAPIEndpoint               = "https://api.openai.com/v1"
	defaultAPIKeyEnvironmentVariable = "OPENAI_API_KEY"
	defaultConcurrency               = 3
	defaultRateDelayMilliseconds     = 1500
	defaultRequestTimeoutSeconds     = 120
	defaultMaxCompletionTokens       = 16000
	defaultMergedOutputPath          = "data/expanded_pairs.jsonl"
	defaultServingListenAddress      = "127.0.0.1:39284"
)

type Root struct {
	Common       Common     `yaml:"common"`
	MergedOutput string     `yaml:"merged_output"`
	SeedInput    string     `yaml:"seed_input"`
	Serving      Serving    `yaml:"serving"`
	Pipelines    []Pipeline `yaml:"pipelines"`
}

type Common struct {
	API struct {
		Endpoint  string `yaml:"endpoint"`
		APIKeyEnv string `yaml:"api_key_env"`
		Model     string `yaml:"model"`
	} `yaml:"api"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
	Defaults struct {
		Concurrency         int `yaml:"concurrency"`
		RateDelayMS         int `yaml:"rate_delay_ms"`
		TimeoutSeconds      int `yaml:"timeout_seconds"`
		MaxCompletionTokens int `yaml:"max_completion_tokens"`
	} `yaml:"defaults"`
}

// Pipeline is the immutable static configuration of one generation
// pipeline. The prompt template carries a {count} placeholder that is
// rendered with the per-call batch request size.
type Pipeline struct {
	Name      string `yaml:"name"`
	Output    string `yaml:"output"`
	Target    int    `yaml:"target"`
	BatchSize int    `yaml:"batch_size"`
	System    string `yaml:"system"`
	Prompt    string `yaml:"prompt"`
}

type Serving struct {
	Listen            string `yaml:"listen"`
	InferenceEndpoint string `yaml:"inference_endpoint"`
}

// LoadRoot parses the provided configuration source, applies defaults
// and validates every pipeline specification.
func LoadRoot(source RootConfigurationSource) (Root, error) {
	if len(source.Content) == 0 {
		return Root{}, fmt.Errorf(rootConfigurationEmptyContentErrorFormat, source.Reference)
	}

	var rootConfiguration Root
	if err := yaml.Unmarshal(source.Content, &rootConfiguration); err != nil {
		return Root{}, fmt.Errorf(rootConfigurationUnmarshalErrorFormat, source.Reference, err)
	}

	rootConfiguration.applyDefaults()
	if err := rootConfiguration.validate(); err != nil {
		return Root{}, err
	}
	return rootConfiguration, nil
}

func (root *Root) applyDefaults() {
	if strings.TrimSpace(root.Common.API.Endpoint) == "" {
		root.Common.API.Endpoint = defaultAPIEndpoint
	}
	if strings.TrimSpace(root.Common.API.APIKeyEnv) == "" {
		root.Common.API.APIKeyEnv = defaultAPIKeyEnvironmentVariable
	}
	if root.Common.Defaults.Concurrency <= 0 {
		root.Common.Defaults.Concurrency = defaultConcurrency
	}
	if root.Common.Defaults.RateDelayMS <= 0 {
		root.Common.Defaults.RateDelayMS = defaultRateDelayMilliseconds
	}
	if root.Common.Defaults.TimeoutSeconds <= 0 {
		root.Common.Defaults.TimeoutSeconds = defaultRequestTimeoutSeconds
	}
	if root.Common.Defaults.MaxCompletionTokens <= 0 {
		root.Common.Defaults.MaxCompletionTokens = defaultMaxCompletionTokens
	}
	if strings.TrimSpace(root.MergedOutput) == "" {
		root.MergedOutput = defaultMergedOutputPath
	}
	if strings.TrimSpace(root.Serving.Listen) == "" {
		root.Serving.Listen = defaultServingListenAddress
	}
}

func (root Root) validate() error {
	if len(root.Pipelines) == 0 {
		return errors.New(emptyPipelinesErrorMessage)
	}
	seenNames := make(map[string]struct{}, len(root.Pipelines))
	for index, pipeline := range root.Pipelines {
		name := strings.TrimSpace(pipeline.Name)
		if name == "" {
			return fmt.Errorf(pipelineNameMissingErrorFormat, index)
		}
		if _, duplicate := seenNames[name]; duplicate {
			return fmt.Errorf(duplicatePipelineNameErrorFormat, name)
		}
		seenNames[name] = struct{}{}
		if strings.TrimSpace(pipeline.Output) == "" {
			return fmt.Errorf(pipelineOutputMissingErrorFormat, name)
		}
		if strings.TrimSpace(pipeline.Prompt) == "" {
			return fmt.Errorf(pipelinePromptMissingErrorFormat, name)
		}
		if pipeline.Target <= 0 {
			return fmt.Errorf(pipelineTargetInvalidErrorFormat, name, pipeline.Target)
		}
		if pipeline.BatchSize <= 0 || pipeline.BatchSize > pipeline.Target {
			return fmt.Errorf(pipelineBatchInvalidErrorFormat, name, pipeline.BatchSize, pipeline.Target)
		}
	}
	return nil
}

func (root Root) RateDelay() time.Duration {
	return time.Duration(root.Common.Defaults.RateDelayMS) * time.Millisecond
}

func (root Root) RequestTimeout() time.Duration {
	return time.Duration(root.Common.Defaults.TimeoutSeconds) * time.Second
}

func (root Root) FindPipeline(name string) (Pipeline, bool) {
	for _, pipeline := range root.Pipelines {
		if pipeline.Name == name {
			return pipeline, true
		}
	}
	return Pipeline{}, false
}
