// Package manager holds tasks, epics and subtasks in memory, derives epic
// status, rejects overlapping schedules and records view history.
package manager

import "tracker/internal/models"

// Manager is the operation set exposed to the HTTP layer and wrapped by the
// persistence decorator. Implementations are not safe for concurrent use.
type Manager interface {
	AddTask(t models.Task) (models.Task, error)
	AddEpic(e models.Epic) (models.Epic, error)
	AddSubtask(s models.Subtask) (models.Subtask, error)

	// TaskByID, EpicByID and SubtaskByID record the id in the history.
	TaskByID(id int64) (models.Task, error)
	EpicByID(id int64) (models.Epic, error)
	SubtaskByID(id int64) (models.Subtask, error)

	UpdateTask(t models.Task) (models.Task, error)
	UpdateEpic(e models.Epic) (models.Epic, error)
	UpdateSubtask(s models.Subtask) (models.Subtask, error)

	DeleteTask(id int64) error
	DeleteEpic(id int64) error
	DeleteSubtask(id int64) error

	DeleteTasks() error
	DeleteEpics() error
	DeleteSubtasks() error

	Tasks() []models.Task
	Epics() []models.Epic
	Subtasks() []models.Subtask
	EpicSubtasks(epicID int64) ([]models.Subtask, error)
	Prioritized() []models.Entry

	// History returns viewed ids, oldest first.
	History() []int64
	// Entry resolves an id of any kind without touching the history.
	Entry(id int64) (models.Entry, bool)
}
