package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tracker/internal/storage/codec"
	"tracker/internal/storage/sqlite"
)

var snapshot = strings.Join([]string{
	codec.Header,
	"1,TASK,Standup,NEW,daily,,15,2024-06-03T10:00:00Z,2024-06-03T10:15:00Z",
	"2,EPIC,Release,IN_PROGRESS,v2,,,,",
	"3,SUBTASK,Tag,IN_PROGRESS,git tag,2,0,null,null",
	"",
	"3,1",
}, "\n")

func writeSnapshot(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.csv")
	if err := os.WriteFile(path, []byte(snapshot), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestDumpTable(t *testing.T) {
	path := writeSnapshot(t)

	cmd := dumpCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("db", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Standup", "Release", "Tag", "IN_PROGRESS", "history: 3 1"} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestDumpJSON(t *testing.T) {
	path := writeSnapshot(t)

	cmd := dumpCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("db", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", path, "--json"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if !strings.Contains(out.String(), `"epic_id": 2`) {
		t.Errorf("Expected subtask epic in JSON, got:\n%s", out.String())
	}
}

func TestDumpSQLiteShowsSavedAt(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasks.db")
	store, err := sqlite.Open(dbPath, "tasks", nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Save([]byte(snapshot)); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	cmd := dumpCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("db", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--backend", "sqlite", "--db", dbPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	for _, want := range []string{"Standup", "history: 3 1", "saved at: "} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out.String())
		}
	}
}

func TestDumpFileHasNoSavedAt(t *testing.T) {
	path := writeSnapshot(t)

	cmd := dumpCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("db", "", "")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if strings.Contains(out.String(), "saved at") {
		t.Errorf("Expected no saved-at line for the file backend, got:\n%s", out.String())
	}
}

func TestDumpUnknownBackend(t *testing.T) {
	cmd := dumpCmd()
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("backend", "", "")
	cmd.Flags().String("data", "", "")
	cmd.Flags().String("db", "", "")
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "redis"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("Expected error for unknown backend")
	}
}
