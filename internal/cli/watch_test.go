package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/render"
)

func waitForFile(t *testing.T, path, substr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil && strings.Contains(string(data), substr) {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("%s never contained %q", path, substr)
}

func TestRunWatchRerendersOnChange(t *testing.T) {
	dir := t.TempDir()
	input := writeCaller(t, dir, "foo.json", testCaller)
	out := filepath.Join(dir, "foo.out.json")

	c := New(io.Discard, LogInfo)
	runner := pipeline.NewRunner(nil, nil, c.Logger)
	flags := &renderFlags{output: out}

	ctx, cancel := context.WithCancel(quietContext())
	done := make(chan error, 1)
	go func() {
		done <- c.runWatch(ctx, runner, input, []render.Format{render.FormatJSON}, flags, pipeline.Options{})
	}()

	waitForFile(t, out, "crate::foo")

	updated := strings.Replace(testCaller, "crate::foo", "crate::renamed", 1)
	if err := os.WriteFile(input, []byte(updated), 0644); err != nil {
		t.Fatal(err)
	}
	waitForFile(t, out, "crate::renamed")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("runWatch returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runWatch did not stop after cancel")
	}
}

func TestRunWatchMissingDir(t *testing.T) {
	c := New(io.Discard, LogInfo)
	err := c.runWatch(quietContext(), pipeline.NewRunner(nil, nil, c.Logger),
		filepath.Join(t.TempDir(), "nope", "foo.json"), []render.Format{render.FormatJSON}, &renderFlags{}, pipeline.Options{})
	if err == nil {
		t.Fatal("expected error when the input directory does not exist")
	}
}
