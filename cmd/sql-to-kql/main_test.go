package main

import (
	"bytes"
	"strings"
	"testing"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTranslateCommand(t *testing.T) {
	out, err := run(t, "", "translate", "--views-dir", t.TempDir(), "SELECT State FROM StormEvents LIMIT 2")
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	expected := "[\"StormEvents\"]\n| project [\"State\"]\n| take 2\n"
	if out != expected {
		t.Fatalf("unexpected output:\nexpected: %q\nactual:   %q", expected, out)
	}
}

func TestTranslateCommandStdin(t *testing.T) {
	out, err := run(t, "SELECT COUNT(*) FROM StormEvents\n", "translate", "--views-dir", t.TempDir())
	if err != nil {
		t.Fatalf("translate failed: %v", err)
	}
	if !strings.Contains(out, "summarize [\"COUNT(*)\"] = count()") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestTranslateCommandErrors(t *testing.T) {
	if _, err := run(t, "", "translate", "--views-dir", t.TempDir(), "SELECT a FROM t1 JOIN t2 ON t1.id = t2.id"); err == nil {
		t.Fatalf("expected translation error")
	}
	if _, err := run(t, "  ", "translate"); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestQueryCommandRequiresCluster(t *testing.T) {
	_, err := run(t, "", "query", "--views-dir", t.TempDir(), "SELECT 1")
	if err == nil || !strings.Contains(err.Error(), "requires a cluster") {
		t.Fatalf("expected cluster error, got %v", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("unexpected version output: %q", out)
	}
}
