package persist

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"tracker/internal/history"
	"tracker/internal/manager"
	"tracker/internal/models"
	"tracker/internal/storage/codec"
	"tracker/internal/storage/file"
	"tracker/internal/storage/sqlite"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memoryBackend records every save.
type memoryBackend struct {
	data  []byte
	saves int
}

func (b *memoryBackend) Save(data []byte) error {
	b.saves++
	b.data = append([]byte(nil), data...)
	return nil
}

func (b *memoryBackend) Load() ([]byte, error) {
	return b.data, nil
}

func TestMutationsSave(t *testing.T) {
	backend := &memoryBackend{}
	m := New(manager.NewMemory(history.New()), backend, discard)

	task, err := m.AddTask(models.Task{Title: "a"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	epic, err := m.AddEpic(models.Epic{Title: "e"})
	if err != nil {
		t.Fatalf("AddEpic failed: %v", err)
	}
	sub, err := m.AddSubtask(models.Subtask{Task: models.Task{Title: "s"}, EpicID: epic.ID})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	if _, err := m.TaskByID(task.ID); err != nil {
		t.Fatalf("TaskByID failed: %v", err)
	}
	sub.Status = models.StatusDone
	if _, err := m.UpdateSubtask(sub); err != nil {
		t.Fatalf("UpdateSubtask failed: %v", err)
	}
	if backend.saves != 5 {
		t.Fatalf("Expected 5 saves, got %d", backend.saves)
	}

	m.Tasks()
	m.Epics()
	m.History()
	if backend.saves != 5 {
		t.Errorf("Expected listings not to save, got %d saves", backend.saves)
	}

	if !strings.HasSuffix(string(backend.data), "\n\n1") {
		t.Errorf("Expected history line to be saved, got %q", backend.data)
	}
}

func TestFailedMutationDoesNotSave(t *testing.T) {
	backend := &memoryBackend{}
	m := New(manager.NewMemory(history.New()), backend, discard)

	if _, err := m.TaskByID(1); !errors.Is(err, manager.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if err := m.DeleteEpic(1); !errors.Is(err, manager.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if backend.saves != 0 {
		t.Errorf("Expected no saves, got %d", backend.saves)
	}
}

type brokenBackend struct{}

func (brokenBackend) Save([]byte) error {
	return errors.Join(manager.ErrIO, errors.New("read-only filesystem"))
}

func (brokenBackend) Load() ([]byte, error) { return nil, nil }

func TestBackendFailureKeepsMemoryState(t *testing.T) {
	inner := manager.NewMemory(history.New())
	m := New(inner, brokenBackend{}, discard)

	task, err := m.AddTask(models.Task{Title: "kept"})
	if !errors.Is(err, manager.ErrIO) {
		t.Fatalf("Expected ErrIO, got %v", err)
	}
	if task.ID != 1 {
		t.Errorf("Expected the added task to be returned, got %+v", task)
	}
	if n := len(inner.Tasks()); n != 1 {
		t.Errorf("Expected in-memory state to stay mutated, got %d tasks", n)
	}
}

func TestEncodeFailureSurfaces(t *testing.T) {
	backend := &memoryBackend{}
	m := New(manager.NewMemory(history.New()), backend, discard)

	if _, err := m.AddTask(models.Task{Title: "comma, inside"}); !errors.Is(err, manager.ErrFormat) {
		t.Fatalf("Expected ErrFormat, got %v", err)
	}
	if backend.saves != 0 {
		t.Errorf("Expected nothing written, got %d saves", backend.saves)
	}
}

func exercise(t *testing.T, m manager.Manager) {
	t.Helper()
	start := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	task, err := m.AddTask(models.Task{Title: "standup", Duration: 15, StartTime: &start})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	epic, err := m.AddEpic(models.Epic{Title: "release"})
	if err != nil {
		t.Fatalf("AddEpic failed: %v", err)
	}
	later := start.Add(time.Hour)
	sub, err := m.AddSubtask(models.Subtask{Task: models.Task{Title: "tag", Status: models.StatusInProgress, Duration: 30, StartTime: &later}, EpicID: epic.ID})
	if err != nil {
		t.Fatalf("AddSubtask failed: %v", err)
	}
	for _, read := range []func() error{
		func() error { _, err := m.SubtaskByID(sub.ID); return err },
		func() error { _, err := m.EpicByID(epic.ID); return err },
		func() error { _, err := m.TaskByID(task.ID); return err },
		func() error { _, err := m.SubtaskByID(sub.ID); return err },
	} {
		if err := read(); err != nil {
			t.Fatalf("lookup failed: %v", err)
		}
	}
}

func assertSameState(t *testing.T, want, got manager.Manager) {
	t.Helper()
	if !reflect.DeepEqual(got.Tasks(), want.Tasks()) {
		t.Errorf("Expected tasks %+v, got %+v", want.Tasks(), got.Tasks())
	}
	if !reflect.DeepEqual(got.Epics(), want.Epics()) {
		t.Errorf("Expected epics %+v, got %+v", want.Epics(), got.Epics())
	}
	if !reflect.DeepEqual(got.Subtasks(), want.Subtasks()) {
		t.Errorf("Expected subtasks %+v, got %+v", want.Subtasks(), got.Subtasks())
	}
	if !reflect.DeepEqual(got.History(), want.History()) {
		t.Errorf("Expected history %v, got %v", want.History(), got.History())
	}
}

func TestReopenFromFile(t *testing.T) {
	backend := file.New(filepath.Join(t.TempDir(), "tasks.csv"))

	m, err := Open(backend, discard)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	exercise(t, m)

	reopened, err := Open(backend, discard)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	assertSameState(t, m, reopened)
	if got, want := reopened.History(), []int64{2, 1, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected history %v, got %v", want, got)
	}

	next, err := reopened.AddTask(models.Task{Title: "after restart"})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if next.ID != 4 {
		t.Errorf("Expected id 4 after restart, got %d", next.ID)
	}
}

func TestReopenFromSQLite(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "tasks.db"), "board", discard)
	if err != nil {
		t.Fatalf("sqlite.Open failed: %v", err)
	}
	defer store.Close()

	m, err := Open(store, discard)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	exercise(t, m)

	reopened, err := Open(store, discard)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	assertSameState(t, m, reopened)
}

func TestOpenMalformedSnapshot(t *testing.T) {
	backend := &memoryBackend{data: []byte(codec.Header + "\n1,BUG,x,NEW,x,,0,null,null\n\n")}
	if _, err := Open(backend, discard); !errors.Is(err, manager.ErrFormat) {
		t.Fatalf("Expected ErrFormat, got %v", err)
	}
}
