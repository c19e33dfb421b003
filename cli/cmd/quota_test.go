package cmd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pithecene-io/cicore/adapter"
)

const limitsConfig = `limits:
  ci_active_pipelines: 5
  ci_active_jobs: 0
  ci_pipeline_size: 100
`

func runQuota(t *testing.T, args ...string) (QuotaResponse, int) {
	t.Helper()
	out, _, code := runApp(t, "", append([]string{"quota", "--format", "json"}, args...)...)
	var resp QuotaResponse
	if out != "" {
		decodeJSON(t, out, &resp)
	}
	return resp, code
}

func TestQuotaCommand_Admitted(t *testing.T) {
	path := writeConfig(t, limitsConfig)

	resp, code := runQuota(t, "--config", path, "--active-pipelines", "3", "--pipeline-size", "40")
	if code != exitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !resp.Admitted || resp.Reason != "" {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Policy != "strict" {
		t.Errorf("Policy = %q, want strict", resp.Policy)
	}
	if len(resp.Verdicts) != 3 {
		t.Fatalf("expected 3 verdicts, got %d", len(resp.Verdicts))
	}
	if resp.Verdicts[1].Enabled {
		t.Error("ci_active_jobs = 0 must disable the limiter")
	}
}

func TestQuotaCommand_RejectedStrict(t *testing.T) {
	path := writeConfig(t, limitsConfig)

	resp, code := runQuota(t, "--config", path, "--active-pipelines", "7")
	if code != exitRejected {
		t.Fatalf("exit code = %d, want %d", code, exitRejected)
	}
	if resp.Admitted {
		t.Error("pipeline should be rejected")
	}
	want := "Active pipelines limit exceeded by 2 pipelines!"
	if resp.Reason != want {
		t.Errorf("Reason = %q, want %q", resp.Reason, want)
	}
}

func TestQuotaCommand_AtLimitAdmitted(t *testing.T) {
	path := writeConfig(t, limitsConfig)

	resp, code := runQuota(t, "--config", path, "--active-pipelines", "5", "--pipeline-size", "100")
	if code != exitSuccess || !resp.Admitted {
		t.Errorf("count equal to limit must be admitted, got code %d %+v", code, resp)
	}
}

func TestQuotaCommand_Advisory(t *testing.T) {
	path := writeConfig(t, limitsConfig)

	resp, code := runQuota(t, "--config", path, "--policy", "advisory", "--active-pipelines", "9")
	if code != exitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	if !resp.Admitted || resp.Policy != "advisory" {
		t.Errorf("unexpected response %+v", resp)
	}
	if !resp.Verdicts[0].Exceeded {
		t.Error("verdict should still report the exceeded limit")
	}
}

func TestQuotaCommand_LimitOverrides(t *testing.T) {
	path := writeConfig(t, limitsConfig)

	tests := []struct {
		name string
		args []string
		want bool
	}{
		{"raised", []string{"--limit-active-pipelines", "10"}, true},
		{"disabled", []string{"--limit-active-pipelines", "0"}, true},
		{"lowered", []string{"--limit-active-pipelines", "6"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", path, "--active-pipelines", "7"}, tt.args...)
			resp, _ := runQuota(t, args...)
			if resp.Admitted != tt.want {
				t.Errorf("Admitted = %v, want %v", resp.Admitted, tt.want)
			}
		})
	}
}

func TestQuotaCommand_NoConfig(t *testing.T) {
	resp, code := runQuota(t, "--active-pipelines", "1000")
	if code != exitSuccess || !resp.Admitted {
		t.Errorf("without limits every pipeline is admitted, got code %d %+v", code, resp)
	}
}

func TestQuotaCommand_PublishesRejection(t *testing.T) {
	var (
		mu     sync.Mutex
		events []adapter.PipelineRejectedEvent
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev adapter.PipelineRejectedEvent
		if err := json.Unmarshal(body, &ev); err == nil {
			mu.Lock()
			events = append(events, ev)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	path := writeConfig(t, limitsConfig+`adapter:
  type: webhook
  url: `+srv.URL+`
  retries: 0
`)

	_, code := runQuota(t, "--config", path, "--namespace-id", "42", "--project-id", "7",
		"--ref", "main", "--active-pipelines", "6")
	if code != exitRejected {
		t.Fatalf("exit code = %d, want %d", code, exitRejected)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(events))
	}
	ev := events[0]
	if ev.EventType != adapter.EventTypePipelineRejected {
		t.Errorf("EventType = %q", ev.EventType)
	}
	if ev.NamespaceID != 42 || ev.ProjectID != 7 || ev.Ref != "main" {
		t.Errorf("unexpected event identity %+v", ev)
	}
	if len(ev.Violations) != 1 || ev.Violations[0].Excess != 1 {
		t.Errorf("unexpected violations %+v", ev.Violations)
	}
}

func TestQuotaCommand_AdvisoryDoesNotPublish(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	path := writeConfig(t, limitsConfig+"admission:\n  policy: advisory\nadapter:\n  type: webhook\n  url: "+srv.URL+"\n")

	if _, code := runQuota(t, "--config", path, "--active-pipelines", "6"); code != exitSuccess {
		t.Fatalf("exit code = %d", code)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 0 {
		t.Errorf("advisory policy published %d events", hits)
	}
}
