package parse

import (
	"encoding/json"
	"strings"
)

// Candidate is one input/output pair extracted from a model response.
// Entries missing either field, or carrying non-string values, are
// dropped silently.
type Candidate struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

const fenceMarker = "```"

// Records extracts candidates from raw model output. The generator is
// a language model whose output is usually, but not reliably, a clean
// JSON array; this degrades gracefully instead of failing the batch.
// It never returns an error: irrecoverable input yields nil.
func Records(text string) []Candidate {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	trimmed = stripFence(trimmed)

	if candidates, ok := decodeArray(trimmed); ok {
		return candidates
	}

	start := strings.Index(trimmed, "[")
	end := strings.LastIndex(trimmed, "]")
	if start >= 0 && end > start {
		if candidates, ok := decodeArray(trimmed[start : end+1]); ok {
			return candidates
		}
	}
	return nil
}

// stripFence drops a leading markdown fence line and, when present,
// the trailing closing fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, fenceMarker) {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == fenceMarker {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func decodeArray(text string) ([]Candidate, bool) {
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, false
	}
	candidates := make([]Candidate, 0, len(entries))
	for _, entry := range entries {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(entry, &fields); err != nil {
			continue
		}
		rawInput, hasInput := fields["input"]
		rawOutput, hasOutput := fields["output"]
		if !hasInput || !hasOutput {
			continue
		}
		var candidate Candidate
		if err := json.Unmarshal(rawInput, &candidate.Input); err != nil {
			continue
		}
		if err := json.Unmarshal(rawOutput, &candidate.Output); err != nil {
			continue
		}
		candidates = append(candidates, candidate)
	}
	return candidates, true
}
