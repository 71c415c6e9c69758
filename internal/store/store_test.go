package store_test

import (
	"strings"
	"testing"

	"github.com/temirov/corpusgen/internal/fsops"
	"github.com/temirov/corpusgen/internal/store"
)

func newMemStore() store.Store { return store.New(fsops.NewMem()) }

func TestCountMissingFileIsZero(t *testing.T) {
	recordStore := newMemStore()
	count, err := recordStore.Count("data/absent.jsonl")
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 0 {
		t.Fatalf("Count = %d, want 0", count)
	}
}

func TestAppendThenCount(t *testing.T) {
	recordStore := newMemStore()
	path := "data/pipe_timers.jsonl"

	first := []store.Record{
		{Input: "set a 5 minute timer", Output: `do shell script "sleep 300"`, Pipeline: "timers_durations"},
		{Input: "what can you do", Output: store.OutOfScopeSentinel, Pipeline: "timers_durations"},
	}
	if err := recordStore.Append(path, first); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := recordStore.Append(path, first[:1]); err != nil {
		t.Fatalf("Append second batch: %v", err)
	}

	count, countErr := recordStore.Count(path)
	if countErr != nil {
		t.Fatalf("Count: %v", countErr)
	}
	if count != 3 {
		t.Fatalf("Count = %d, want 3", count)
	}

	content, readErr := recordStore.FS.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile: %v", readErr)
	}
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"pipeline":"timers_durations"`) {
		t.Fatalf("line missing pipeline tag: %s", lines[0])
	}
}

func TestAppendEmptyBatchIsNoop(t *testing.T) {
	recordStore := newMemStore()
	if err := recordStore.Append("data/pipe.jsonl", nil); err != nil {
		t.Fatalf("Append nil: %v", err)
	}
	count, _ := recordStore.Count("data/pipe.jsonl")
	if count != 0 {
		t.Fatalf("Count = %d, want 0", count)
	}
}

func TestMergeOrdersAndTruncates(t *testing.T) {
	recordStore := newMemStore()

	if err := recordStore.Append("data/a.jsonl", []store.Record{
		{Input: "a1", Output: "o", Pipeline: "a"},
		{Input: "a2", Output: "o", Pipeline: "a"},
	}); err != nil {
		t.Fatalf("Append a: %v", err)
	}
	if err := recordStore.Append("data/b.jsonl", []store.Record{
		{Input: "b1", Output: "o", Pipeline: "b"},
	}); err != nil {
		t.Fatalf("Append b: %v", err)
	}
	// Stale merged output from an earlier run must be discarded.
	if err := recordStore.FS.WriteFile("data/merged.jsonl", []byte("stale\nstale\n"), 0o644); err != nil {
		t.Fatalf("seed stale merge: %v", err)
	}

	total, mergeErr := recordStore.Merge([]string{"data/a.jsonl", "data/missing.jsonl", "data/b.jsonl"}, "data/merged.jsonl")
	if mergeErr != nil {
		t.Fatalf("Merge: %v", mergeErr)
	}
	if total != 3 {
		t.Fatalf("merged total = %d, want 3", total)
	}

	content, readErr := recordStore.FS.ReadFile("data/merged.jsonl")
	if readErr != nil {
		t.Fatalf("ReadFile merged: %v", readErr)
	}
	merged := string(content)
	if strings.Contains(merged, "stale") {
		t.Fatal("merge did not truncate previous output")
	}
	lines := strings.Split(strings.TrimRight(merged, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 merged lines, got %d", len(lines))
	}
	wantOrder := []string{`"input":"a1"`, `"input":"a2"`, `"input":"b1"`}
	for index, fragment := range wantOrder {
		if !strings.Contains(lines[index], fragment) {
			t.Fatalf("line %d out of order: %s", index, lines[index])
		}
	}
}
