package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/upgraph/pkg/observability"
)

func TestSpinnerStopIsNotCancellation(t *testing.T) {
	s := newSpinner("Rendering crate::foo")
	s.out = io.Discard
	s.Start()
	time.Sleep(100 * time.Millisecond)
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("Stop alone should not count as cancellation")
	}
}

func TestSpinnerFollowsContext(t *testing.T) {
	tests := []struct {
		name string
		ctx  func() (context.Context, context.CancelFunc)
	}{
		{"cancel", func() (context.Context, context.CancelFunc) { return context.WithCancel(context.Background()) }},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 50*time.Millisecond)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := tt.ctx()
			defer cancel()
			s := newSpinnerWithContext(ctx, "Rendering crate::foo")
			s.out = io.Discard
			s.Start()
			if tt.name == "cancel" {
				cancel()
			}
			time.Sleep(100 * time.Millisecond)
			if !s.Cancelled() {
				t.Error("spinner should report the ended render context")
			}
			s.Stop()
		})
	}
}

func TestSpinnerStopWithResult(t *testing.T) {
	buf := captureStdout(t)
	s := newSpinner("Rendering crate::foo")
	s.out = io.Discard
	s.Start()
	s.StopWithSuccess("Rendered crate::foo")

	s = newSpinner("Rendering crate::bar")
	s.out = io.Discard
	s.Start()
	s.StopWithError("nested layout failed")

	out := buf.String()
	if !strings.Contains(out, "Rendered crate::foo") || !strings.Contains(out, "nested layout failed") {
		t.Errorf("output = %q", out)
	}
}

func TestSpinnerWritesToOut(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("Rendering crate::foo")
	s.out = &buf
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	out := buf.String()
	if !strings.Contains(out, "Rendering crate::foo") {
		t.Errorf("output %q lacks the message", out)
	}
	if !strings.HasSuffix(out, "\r") {
		t.Errorf("output %q should end by clearing the line", out)
	}
}

func TestSpinnerShowsStage(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("Rendering crate::foo")
	s.out = &buf
	s.Stage("nested layout, 7 nodes")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.Stop()

	if !strings.Contains(buf.String(), "nested layout, 7 nodes") {
		t.Errorf("output %q lacks the stage", buf.String())
	}
}

func TestTrackStagesRestoresHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	observability.Reset()
	s := newSpinner("Rendering crate::foo")

	restore := trackStages(s)
	observability.Pipeline().OnStageStart(context.Background(), "tree", 3)
	restore()

	s.mu.Lock()
	stage := s.stage
	s.mu.Unlock()
	if stage != "tree layout, 3 nodes" {
		t.Errorf("stage = %q", stage)
	}
	if _, ok := observability.Pipeline().(observability.NoopPipelineHooks); !ok {
		t.Errorf("hooks not restored: %T", observability.Pipeline())
	}
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	var buf bytes.Buffer
	s := newSpinner("Rendering crate::foo")
	s.out = &buf
	s.Stop()
	if s.Cancelled() {
		t.Error("Stop alone should not count as cancellation")
	}
}
