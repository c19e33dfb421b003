package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/pithecene-io/cicore/types"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Format
		wantErr bool
	}{
		{"json lowercase", "json", FormatJSON, false},
		{"json uppercase", "JSON", FormatJSON, false},
		{"table", "table", FormatTable, false},
		{"yaml", "yaml", FormatYAML, false},
		{"empty", "", "", false},
		{"invalid", "xml", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseFormat_InvalidErrorMessage(t *testing.T) {
	_, err := ParseFormat("xml")
	if err == nil || !strings.Contains(err.Error(), "json, table, or yaml") {
		t.Errorf("error message should mention valid formats, got: %v", err)
	}
}

type job struct {
	ID int64 `json:"id"`
}

type stageRow struct {
	Name   string       `json:"name"`
	Status types.Status `json:"status"`
	Tags   []string     `json:"tags"`
	Jobs   []job        `json:"jobs"`
}

func TestRenderer_JSONAndYAML(t *testing.T) {
	row := stageRow{Name: "build", Status: types.StatusSuccess}

	var js bytes.Buffer
	if err := NewRendererWithWriter(FormatJSON, false, &js).Render(row); err != nil {
		t.Fatalf("Render json failed: %v", err)
	}
	if !strings.Contains(js.String(), `"status": "success"`) {
		t.Errorf("JSON output missing status: %s", js.String())
	}
	if strings.Contains(js.String(), "\x1b[") {
		t.Error("JSON output must never be colored")
	}

	var ym bytes.Buffer
	if err := NewRendererWithWriter(FormatYAML, false, &ym).Render(map[string]string{"status": "failed"}); err != nil {
		t.Fatalf("Render yaml failed: %v", err)
	}
	if !strings.Contains(ym.String(), "status: failed") {
		t.Errorf("YAML output missing content: %s", ym.String())
	}
}

func TestRenderer_Table_Struct(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	row := stageRow{Name: "test", Status: types.StatusFailed, Tags: []string{"docker", "linux"}, Jobs: []job{{1}, {2}}}
	if err := r.Render(row); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"name:", "test", "status:", "failed", "docker,linux", "[2 items]"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %s", want, got)
		}
	}
}

func TestRenderer_Table_Slice(t *testing.T) {
	var buf bytes.Buffer
	r := NewRendererWithWriter(FormatTable, true, &buf)

	rows := []stageRow{
		{Name: "build", Status: types.StatusSuccess},
		{Name: "deploy", Status: types.StatusManual},
	}
	if err := r.Render(rows); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "name") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[2], "deploy") || !strings.Contains(lines[2], "manual") {
		t.Errorf("row = %q", lines[2])
	}
}

func TestRenderer_Table_EmptySlice(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, false, &buf).Render([]stageRow{}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(buf.String(), "(no results)") {
		t.Errorf("empty slice should show '(no results)', got: %s", buf.String())
	}
}

func TestRenderer_Table_StatusColor(t *testing.T) {
	var colored, plain bytes.Buffer

	row := stageRow{Name: "test", Status: types.StatusFailed}
	if err := NewRendererWithWriter(FormatTable, false, &colored).Render(row); err != nil {
		t.Fatal(err)
	}
	if err := NewRendererWithWriter(FormatTable, true, &plain).Render(row); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(colored.String(), "\x1b[") || !strings.Contains(colored.String(), "failed") {
		t.Errorf("expected colored status, got %q", colored.String())
	}
	if strings.Contains(plain.String(), "\x1b[") {
		t.Errorf("--no-color output contains escape codes: %q", plain.String())
	}
}

func TestIsTTY_NonFile(t *testing.T) {
	if isTTY(&bytes.Buffer{}) {
		t.Error("a buffer is never a TTY")
	}
}

func TestStatusStyles(t *testing.T) {
	var buf bytes.Buffer

	colored := newStatusStyles(&buf, false, false)
	failed := colored.render(types.StatusFailed)
	success := colored.render(types.StatusSuccess)
	if failed == "failed" || success == "success" {
		t.Fatalf("expected styled output, got %q and %q", failed, success)
	}
	failedPrefix, _, _ := strings.Cut(failed, "failed")
	successPrefix, _, _ := strings.Cut(success, "success")
	if failedPrefix == successPrefix {
		t.Error("failed and success should use different styles")
	}
	if got := colored.render(types.StatusManual); !strings.Contains(got, "manual") {
		t.Errorf("fallback style dropped the text: %q", got)
	}

	plain := newStatusStyles(&buf, true, false)
	for _, st := range types.Statuses() {
		if got := plain.render(st); got != string(st) {
			t.Errorf("plain render(%q) = %q", st, got)
		}
	}
}

func TestRenderer_Table_ScalarSlice(t *testing.T) {
	var buf bytes.Buffer
	if err := NewRendererWithWriter(FormatTable, true, &buf).Render([]int64{1, 2}); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 || lines[0] != "value" || lines[1] != "1" || lines[2] != "2" {
		t.Errorf("unexpected output %q", buf.String())
	}
}
