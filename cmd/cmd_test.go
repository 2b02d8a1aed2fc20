package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func useTempLedger(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db.json")
	if doc != "" {
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("LEDGER_BACKEND", "file")
	t.Setenv("LEDGER_PATH", path)
	t.Setenv("POOL_SIZE", "3")
	t.Setenv("LOG_LEVEL", "error")
	return path
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "parkour dev") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestKeys(t *testing.T) {
	out, err := run(t, "keys")
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	if !strings.Contains(out, "export RECEIPT_HASH_KEY=") || !strings.Contains(out, "export RECEIPT_BLOCK_KEY=") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSlotsListAndSweep(t *testing.T) {
	useTempLedger(t, `{"slots":[
		{"id":1,"isAvailable":true,"reservedUntil":null},
		{"id":2,"isAvailable":false,"reservedUntil":"2000-01-01T00:00:00.000Z"},
		{"id":3,"isAvailable":false,"reservedUntil":"2999-01-01T00:00:00.000Z"}
	]}`)

	out, err := run(t, "slots", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "available") || strings.Count(out, "reserved") != 2 {
		t.Fatalf("unexpected listing:\n%s", out)
	}

	out, err = run(t, "slots", "sweep")
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if !strings.Contains(out, "reclaimed 1 slot(s) [2]") {
		t.Fatalf("unexpected sweep output %q", out)
	}
}

func TestSlotsResetRequiresConfirmation(t *testing.T) {
	path := useTempLedger(t, "")
	if _, err := run(t, "slots", "reset"); err == nil {
		t.Fatalf("expected refusal without --yes")
	}
	out, err := run(t, "slots", "reset", "--yes")
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !strings.Contains(out, "reset 3 slot(s)") {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("ledger not written: %v", err)
	}
}
