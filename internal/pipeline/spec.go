package pipeline

import (
	"strconv"
	"strings"

	"github.com/temirov/corpusgen/internal/config"
)

// countPlaceholder is the token in a prompt template replaced with the
// number of records requested by one call.
const countPlaceholder = "{count}"

// Spec is the immutable static configuration of one generation
// pipeline: where its records go, how many it targets, and the
// prompts used to request them.
type Spec struct {
	Name      string
	Output    string
	Target    int
	BatchSize int
	System    string
	Prompt    string
}

func FromConfig(configured config.Pipeline) Spec {
	return Spec{
		Name:      configured.Name,
		Output:    configured.Output,
		Target:    configured.Target,
		BatchSize: configured.BatchSize,
		System:    configured.System,
		Prompt:    configured.Prompt,
	}
}

func SpecsFromConfig(configured []config.Pipeline) []Spec {
	specs := make([]Spec, 0, len(configured))
	for _, pipelineConfiguration := range configured {
		specs = append(specs, FromConfig(pipelineConfiguration))
	}
	return specs
}

// RenderPrompt substitutes the requested record count into the
// pipeline's prompt template.
func (s Spec) RenderPrompt(count int) string {
	return strings.ReplaceAll(s.Prompt, countPlaceholder, strconv.Itoa(count))
}
