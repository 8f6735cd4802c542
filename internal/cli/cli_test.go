package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/oychao1988/content-hub-sub001/internal/executor"
)

func testInfos() map[string]executor.Info {
	return map[string]executor.Info{
		"workflow":   {Type: "workflow", Description: "runs steps"},
		"publishing": {Type: "publishing", Description: "publishes entries"},
	}
}

func TestPrintExecutors_Table(t *testing.T) {
	var out, errOut bytes.Buffer
	PrintExecutors(NewOutputTo(false, &out, &errOut), testInfos())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[0], "TYPE") {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[2], "publishing") || !strings.HasPrefix(lines[3], "workflow") {
		t.Errorf("rows are not sorted by type:\n%s", out.String())
	}
}

func TestPrintExecutors_JSON(t *testing.T) {
	var out bytes.Buffer
	PrintExecutors(NewOutputTo(true, &out, &bytes.Buffer{}), testInfos())

	var got []executor.Info
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(got) != 2 || got[0].Type != "publishing" {
		t.Errorf("unexpected list: %+v", got)
	}
}

func TestMigrateCmd_RejectsUnknownCommand(t *testing.T) {
	cmd := NewMigrateCmd(Env{})
	cmd.SetArgs([]string{"sideways"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unknown migrate command")
	}
}
