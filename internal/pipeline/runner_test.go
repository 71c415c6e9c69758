package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"testing"

	"github.com/temirov/corpusgen/internal/fsops"
	"github.com/temirov/corpusgen/internal/gate"
	"github.com/temirov/corpusgen/internal/pipeline"
	"github.com/temirov/corpusgen/internal/store"
)

// fakeClient returns one JSON array of pairsPerCall pairs per call, or
// consults a script of per-call behaviors when provided.
type fakeClient struct {
	pairsPerCall int
	script       []func(call int, userPrompt string) (string, error)
	calls        int
	prompts      []string
}

func (f *fakeClient) Complete(ctx context.Context, systemPrompt string, userPrompt string, maxTokens int) (string, error) {
	callIndex := f.calls
	f.calls++
	f.prompts = append(f.prompts, userPrompt)
	if f.script != nil {
		return f.script[callIndex](callIndex, userPrompt)
	}
	return pairsArray(f.pairsPerCall), nil
}

func pairsArray(count int) string {
	text := "["
	for pairIndex := 0; pairIndex < count; pairIndex++ {
		if pairIndex > 0 {
			text += ","
		}
		text += fmt.Sprintf(`{"input":"phrase %d","output":"command %d"}`, pairIndex, pairIndex)
	}
	return text + "]"
}

func newRunner(client pipeline.CompletionClient) (pipeline.Runner, store.Store) {
	recordStore := store.New(fsops.NewMem())
	runner := pipeline.Runner{
		Client:    client,
		Gate:      gate.New(3),
		Store:     recordStore,
		RateDelay: 0,
		MaxTokens: 100,
	}
	return runner, recordStore
}

func testSpec(target int, batch int) pipeline.Spec {
	return pipeline.Spec{
		Name:      "timers_durations",
		Output:    "data/pipe_timers.jsonl",
		Target:    target,
		BatchSize: batch,
		System:    "system prompt",
		Prompt:    "Generate {count} pairs.",
	}
}

func TestRunSkipsWhenTargetAlreadyReached(t *testing.T) {
	client := &fakeClient{pairsPerCall: 10}
	runner, recordStore := newRunner(client)
	spec := testSpec(2, 2)

	preexisting := []store.Record{
		{Input: "a", Output: "o", Pipeline: spec.Name},
		{Input: "b", Output: "o", Pipeline: spec.Name},
		{Input: "c", Output: "o", Pipeline: spec.Name},
	}
	if err := recordStore.Append(spec.Output, preexisting); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if finalCount != 3 {
		t.Fatalf("finalCount = %d, want 3", finalCount)
	}
	if client.calls != 0 {
		t.Fatalf("expected zero client calls, saw %d", client.calls)
	}
}

func TestRunExactBatches(t *testing.T) {
	client := &fakeClient{pairsPerCall: 60}
	runner, recordStore := newRunner(client)
	spec := testSpec(120, 60)

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if finalCount != 120 {
		t.Fatalf("finalCount = %d, want 120", finalCount)
	}
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
	lines, _ := recordStore.Count(spec.Output)
	if lines != 120 {
		t.Fatalf("store lines = %d, want 120", lines)
	}
}

func TestRunShortFinalBatchRequest(t *testing.T) {
	client := &fakeClient{pairsPerCall: 80}
	runner, recordStore := newRunner(client)
	spec := testSpec(100, 80)

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
	if requested := renderedCount(t, client.prompts[0]); requested != 80 {
		t.Fatalf("first call requested %d, want 80", requested)
	}
	if requested := renderedCount(t, client.prompts[1]); requested != 20 {
		t.Fatalf("second call requested %d, want 20", requested)
	}
	if finalCount != 160 {
		// The client over-delivers on the final call; every parsed
		// record is still persisted (best effort, no trimming).
		t.Fatalf("finalCount = %d, want 160", finalCount)
	}
	lines, _ := recordStore.Count(spec.Output)
	if lines != finalCount {
		t.Fatalf("store lines = %d, want %d", lines, finalCount)
	}
}

func TestRunObedientClientReachesExactTarget(t *testing.T) {
	client := &fakeClient{script: []func(int, string) (string, error){
		func(call int, userPrompt string) (string, error) { return pairsArray(80), nil },
		func(call int, userPrompt string) (string, error) {
			return pairsArray(renderedCountValue(userPrompt)), nil
		},
	}}
	runner, recordStore := newRunner(client)
	spec := testSpec(100, 80)

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if finalCount != 100 {
		t.Fatalf("finalCount = %d, want 100", finalCount)
	}
	if client.calls != 2 {
		t.Fatalf("calls = %d, want 2", client.calls)
	}
	lines, _ := recordStore.Count(spec.Output)
	if lines != 100 {
		t.Fatalf("store lines = %d, want 100", lines)
	}
}

func TestRunFailedBatchesSkipWithoutAbort(t *testing.T) {
	client := &fakeClient{script: []func(int, string) (string, error){
		func(int, string) (string, error) { return "", errors.New("network unreachable") },
		func(int, string) (string, error) { return "not json at all", nil },
		func(int, string) (string, error) { return pairsArray(2), nil },
	}}
	runner, recordStore := newRunner(client)
	spec := testSpec(6, 2)

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	// Three scheduled calls, two absorbed failures, one persisted
	// batch: under-target completion is not an error.
	if finalCount != 2 {
		t.Fatalf("finalCount = %d, want 2", finalCount)
	}
	if client.calls != 3 {
		t.Fatalf("calls = %d, want 3", client.calls)
	}
	lines, _ := recordStore.Count(spec.Output)
	if lines != 2 {
		t.Fatalf("store lines = %d, want 2", lines)
	}
}

func TestRunResumesFromExistingLines(t *testing.T) {
	client := &fakeClient{pairsPerCall: 50}
	runner, recordStore := newRunner(client)
	spec := testSpec(120, 50)

	seed := make([]store.Record, 70)
	for seedIndex := range seed {
		seed[seedIndex] = store.Record{Input: "seed", Output: "o", Pipeline: spec.Name}
	}
	if err := recordStore.Append(spec.Output, seed); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	finalCount, runErr := runner.Run(context.Background(), spec)
	if runErr != nil {
		t.Fatalf("Run: %v", runErr)
	}
	if finalCount != 120 {
		t.Fatalf("finalCount = %d, want 120", finalCount)
	}
	if client.calls != 1 {
		t.Fatalf("calls = %d, want 1 (50 remaining fits one batch)", client.calls)
	}
	if requested := renderedCount(t, client.prompts[0]); requested != 50 {
		t.Fatalf("requested %d, want 50", requested)
	}
}

func TestRunCancellationAbortsBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{script: []func(int, string) (string, error){
		func(int, string) (string, error) {
			cancel()
			return pairsArray(2), nil
		},
		func(int, string) (string, error) { return pairsArray(2), nil },
	}}
	runner, recordStore := newRunner(client)
	spec := testSpec(4, 2)

	finalCount, runErr := runner.Run(ctx, spec)
	if runErr == nil {
		t.Fatal("expected cancellation error")
	}
	// Cancellation lands before the in-flight batch is appended, so
	// that batch's progress is lost and nothing is rolled back.
	if finalCount != 0 {
		t.Fatalf("finalCount = %d, want 0 (cancellation observed before append)", finalCount)
	}
	lines, _ := recordStore.Count(spec.Output)
	if lines != 0 {
		t.Fatalf("store lines = %d, want 0", lines)
	}
}

var renderedCountPattern = regexp.MustCompile(`Generate (\d+) pairs\.`)

func renderedCount(t *testing.T, prompt string) int {
	t.Helper()
	matches := renderedCountPattern.FindStringSubmatch(prompt)
	if matches == nil {
		t.Fatalf("prompt %q does not carry a rendered count", prompt)
	}
	value, _ := strconv.Atoi(matches[1])
	return value
}

func renderedCountValue(prompt string) int {
	matches := renderedCountPattern.FindStringSubmatch(prompt)
	if matches == nil {
		return 0
	}
	value, _ := strconv.Atoi(matches[1])
	return value
}
