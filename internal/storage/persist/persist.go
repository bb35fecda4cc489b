// Package persist wraps a manager so every successful change is written to
// a backend as a full snapshot.
//
// Persistence is best effort: when the backend fails the change stays
// applied in memory and the caller receives an error wrapping
// manager.ErrIO.
package persist

import (
	"fmt"
	"log/slog"

	"tracker/internal/history"
	"tracker/internal/manager"
	"tracker/internal/models"
	"tracker/internal/storage/codec"
)

// Backend stores and returns a snapshot. Load returns nil data when
// nothing has been stored yet.
type Backend interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

// Manager decorates an inner manager.Manager. Read-only listings pass
// through; mutations and *ByID lookups, which change the history, save
// after they succeed.
type Manager struct {
	manager.Manager
	backend Backend
	logger  *slog.Logger
}

var _ manager.Manager = (*Manager)(nil)

// New wraps inner without loading anything.
func New(inner manager.Manager, backend Backend, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{Manager: inner, backend: backend, logger: logger}
}

// Open restores the backend's snapshot into a fresh in-memory manager and
// wraps it.
func Open(backend Backend, logger *slog.Logger) (*Manager, error) {
	inner, err := Restore(backend)
	if err != nil {
		return nil, err
	}
	return New(inner, backend, logger), nil
}

// Restore loads the backend's snapshot into a new in-memory manager.
func Restore(backend Backend) (*manager.Memory, error) {
	data, err := backend.Load()
	if err != nil {
		return nil, err
	}
	inner := manager.NewMemory(history.New())
	if err := codec.Unmarshal(data, inner); err != nil {
		return nil, fmt.Errorf("restore snapshot: %w", err)
	}
	return inner, nil
}

func (m *Manager) save() error {
	data, err := codec.Marshal(m.Manager)
	if err != nil {
		m.logger.Error("encode snapshot", slog.String("error", err.Error()))
		return err
	}
	if err := m.backend.Save(data); err != nil {
		m.logger.Error("save snapshot", slog.String("error", err.Error()))
		return err
	}
	m.logger.Debug("snapshot saved", slog.Int("bytes", len(data)))
	return nil
}

func (m *Manager) AddTask(t models.Task) (models.Task, error) {
	t, err := m.Manager.AddTask(t)
	if err != nil {
		return models.Task{}, err
	}
	return t, m.save()
}

func (m *Manager) AddEpic(e models.Epic) (models.Epic, error) {
	e, err := m.Manager.AddEpic(e)
	if err != nil {
		return models.Epic{}, err
	}
	return e, m.save()
}

func (m *Manager) AddSubtask(s models.Subtask) (models.Subtask, error) {
	s, err := m.Manager.AddSubtask(s)
	if err != nil {
		return models.Subtask{}, err
	}
	return s, m.save()
}

func (m *Manager) TaskByID(id int64) (models.Task, error) {
	t, err := m.Manager.TaskByID(id)
	if err != nil {
		return models.Task{}, err
	}
	return t, m.save()
}

func (m *Manager) EpicByID(id int64) (models.Epic, error) {
	e, err := m.Manager.EpicByID(id)
	if err != nil {
		return models.Epic{}, err
	}
	return e, m.save()
}

func (m *Manager) SubtaskByID(id int64) (models.Subtask, error) {
	s, err := m.Manager.SubtaskByID(id)
	if err != nil {
		return models.Subtask{}, err
	}
	return s, m.save()
}

func (m *Manager) UpdateTask(t models.Task) (models.Task, error) {
	t, err := m.Manager.UpdateTask(t)
	if err != nil {
		return models.Task{}, err
	}
	return t, m.save()
}

func (m *Manager) UpdateEpic(e models.Epic) (models.Epic, error) {
	e, err := m.Manager.UpdateEpic(e)
	if err != nil {
		return models.Epic{}, err
	}
	return e, m.save()
}

func (m *Manager) UpdateSubtask(s models.Subtask) (models.Subtask, error) {
	s, err := m.Manager.UpdateSubtask(s)
	if err != nil {
		return models.Subtask{}, err
	}
	return s, m.save()
}

func (m *Manager) DeleteTask(id int64) error {
	if err := m.Manager.DeleteTask(id); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) DeleteEpic(id int64) error {
	if err := m.Manager.DeleteEpic(id); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) DeleteSubtask(id int64) error {
	if err := m.Manager.DeleteSubtask(id); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) DeleteTasks() error {
	if err := m.Manager.DeleteTasks(); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) DeleteEpics() error {
	if err := m.Manager.DeleteEpics(); err != nil {
		return err
	}
	return m.save()
}

func (m *Manager) DeleteSubtasks() error {
	if err := m.Manager.DeleteSubtasks(); err != nil {
		return err
	}
	return m.save()
}
