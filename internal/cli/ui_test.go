package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/matzehuels/upgraph/pkg/build"
	"github.com/matzehuels/upgraph/pkg/errors"
	"github.com/matzehuels/upgraph/pkg/pipeline"
	"github.com/matzehuels/upgraph/pkg/refine"
)

func captureStdout(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestPrintSummary(t *testing.T) {
	buf := captureStdout(t)
	res := &pipeline.Result{
		Stats:       pipeline.Stats{NodeCount: 12, EdgeCount: 9},
		Diagnostics: []build.Diagnostic{{Code: errors.ErrCodeMalformedInput, Subject: "Vec::push", Message: "unknown access kind"}},
		CacheInfo:   pipeline.CacheInfo{NestedHit: true},
		Refine:      refine.Report{Grown: 2, Moved: 1, Headers: 4},
	}
	printSummary(res)

	out := buf.String()
	for _, want := range []string{"12 nodes", "9 edges", "1 skipped", "nested cached", "tree fresh", "3 fixes"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary %q lacks %q", out, want)
		}
	}
	if strings.Count(out, "\n") != 1 {
		t.Errorf("summary should be one line, got %q", out)
	}
}

func TestPrintSummaryCleanRender(t *testing.T) {
	buf := captureStdout(t)
	printSummary(&pipeline.Result{
		Stats:     pipeline.Stats{NodeCount: 2, EdgeCount: 1},
		CacheInfo: pipeline.CacheInfo{NestedHit: true, TreeHit: true},
	})

	out := buf.String()
	if strings.Contains(out, "skipped") || strings.Contains(out, "fixes") {
		t.Errorf("clean render should not mention skips or fixes: %q", out)
	}
	if !strings.Contains(out, "tree cached") {
		t.Errorf("summary %q should report the tree stage hit", out)
	}
}

func TestPrintDiagnostics(t *testing.T) {
	buf := captureStdout(t)
	printDiagnostics([]build.Diagnostic{
		{Code: errors.ErrCodeMalformedInput, Subject: "Vec::push", Message: "unknown access kind"},
		{Code: errors.ErrCodeIdentityCollision, Subject: "c@ptr::read", Message: "duplicate node id"},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], string(errors.ErrCodeMalformedInput)) || !strings.Contains(lines[0], "Vec::push") {
		t.Errorf("line %q lacks code or subject", lines[0])
	}
	if !strings.Contains(lines[1], "duplicate node id") {
		t.Errorf("line %q lacks the message", lines[1])
	}
}

func TestSafetyLabelKeepsName(t *testing.T) {
	for _, safe := range []bool{true, false} {
		if got := safetyLabel("crate::foo", safe); !strings.Contains(got, "crate::foo") {
			t.Errorf("safetyLabel(safe=%v) = %q", safe, got)
		}
	}
}
