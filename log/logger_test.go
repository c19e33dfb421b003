package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_ScopeFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerWithLevel(Scope{Component: "admission", NamespaceID: 7, PipelineID: 99}, &buf, "debug")
	if err != nil {
		t.Fatal(err)
	}

	l.Info("pipeline admitted", map[string]any{"stages": 3})

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	entry := lines[0]
	if entry["message"] != "pipeline admitted" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v", entry["level"])
	}
	if entry["component"] != "admission" {
		t.Errorf("component = %v", entry["component"])
	}
	if entry["namespace_id"] != float64(7) {
		t.Errorf("namespace_id = %v", entry["namespace_id"])
	}
	if _, ok := entry["project_id"]; ok {
		t.Error("zero project_id must be omitted")
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewLoggerWithLevel(Scope{}, &buf, "warn")
	if err != nil {
		t.Fatal(err)
	}

	l.Info("dropped", nil)
	l.Warn("kept", nil)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0]["message"] != "kept" {
		t.Errorf("expected only the warning, got %v", lines)
	}
}

func TestLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLoggerWithLevel(Scope{}, &bytes.Buffer{}, "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}

func TestLogger_WithScopeAndSugar(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(Scope{}).WithOutput(&buf).WithScope(Scope{ProjectID: 5})

	l.Sugar().With("runner_shapes", 2).Infof("built %d matchers", 2)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "built 2 matchers" {
		t.Errorf("message = %v", lines[0]["message"])
	}
	if lines[0]["project_id"] != float64(5) {
		t.Errorf("project_id = %v", lines[0]["project_id"])
	}
	if lines[0]["runner_shapes"] != float64(2) {
		t.Errorf("runner_shapes = %v", lines[0]["runner_shapes"])
	}
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("nothing", map[string]any{"x": 1})
	l.Sugar().Errorf("still nothing")
}
