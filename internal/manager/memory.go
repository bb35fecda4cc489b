package manager

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"
	"time"

	"tracker/internal/history"
	"tracker/internal/models"
)

// Memory is the in-memory Manager. Identifiers come from a single counter
// shared by all three kinds.
type Memory struct {
	nextID   int64
	tasks    map[int64]*models.Task
	epics    map[int64]*models.Epic
	subtasks map[int64]*models.Subtask
	children map[int64]map[int64]struct{}
	history  *history.Tracker
}

var _ Manager = (*Memory)(nil)

// NewMemory builds an empty store recording views into h.
func NewMemory(h *history.Tracker) *Memory {
	if h == nil {
		h = history.New()
	}
	return &Memory{
		tasks:    make(map[int64]*models.Task),
		epics:    make(map[int64]*models.Epic),
		subtasks: make(map[int64]*models.Subtask),
		children: make(map[int64]map[int64]struct{}),
		history:  h,
	}
}

// AddTask stores a new task under a fresh id.
func (m *Memory) AddTask(t models.Task) (models.Task, error) {
	return m.addTask(t, 0)
}

// AddEpic stores a new epic under a fresh id. Its status starts as NEW.
func (m *Memory) AddEpic(e models.Epic) (models.Epic, error) {
	return m.addEpic(e, 0)
}

// AddSubtask stores a new subtask and attaches it to its epic.
func (m *Memory) AddSubtask(s models.Subtask) (models.Subtask, error) {
	return m.addSubtask(s, 0)
}

// RestoreTask adds a task keeping t.ID. Used when loading persisted state.
func (m *Memory) RestoreTask(t models.Task) (models.Task, error) {
	if err := m.checkRestoreID(t.ID); err != nil {
		return models.Task{}, fmt.Errorf("restore task: %w", err)
	}
	return m.addTask(t, t.ID)
}

// RestoreEpic adds an epic keeping e.ID.
func (m *Memory) RestoreEpic(e models.Epic) (models.Epic, error) {
	if err := m.checkRestoreID(e.ID); err != nil {
		return models.Epic{}, fmt.Errorf("restore epic: %w", err)
	}
	return m.addEpic(e, e.ID)
}

// RestoreSubtask adds a subtask keeping s.ID.
func (m *Memory) RestoreSubtask(s models.Subtask) (models.Subtask, error) {
	if err := m.checkRestoreID(s.ID); err != nil {
		return models.Subtask{}, fmt.Errorf("restore subtask: %w", err)
	}
	return m.addSubtask(s, s.ID)
}

func (m *Memory) addTask(t models.Task, id int64) (models.Task, error) {
	if err := m.checkCapacity(id); err != nil {
		return models.Task{}, fmt.Errorf("add task: %w", err)
	}
	if err := checkDuration(t.Duration); err != nil {
		return models.Task{}, fmt.Errorf("add task: %w", err)
	}
	if !t.Status.Valid() {
		t.Status = models.StatusNew
	}
	t.Schedule()
	if err := m.checkSchedule(t, 0); err != nil {
		return models.Task{}, fmt.Errorf("add task: %w", err)
	}

	t.ID = m.allocate(id)
	stored := cloneTask(t)
	m.tasks[t.ID] = &stored
	return cloneTask(stored), nil
}

func (m *Memory) addEpic(e models.Epic, id int64) (models.Epic, error) {
	if err := m.checkCapacity(id); err != nil {
		return models.Epic{}, fmt.Errorf("add epic: %w", err)
	}
	e.ID = m.allocate(id)
	e.Status = models.StatusNew
	e.SubtaskIDs = nil
	stored := e
	m.epics[e.ID] = &stored
	m.children[e.ID] = make(map[int64]struct{})
	return m.epicView(&stored), nil
}

func (m *Memory) addSubtask(s models.Subtask, id int64) (models.Subtask, error) {
	if err := m.checkCapacity(id); err != nil {
		return models.Subtask{}, fmt.Errorf("add subtask: %w", err)
	}
	if _, ok := m.epics[s.EpicID]; !ok {
		return models.Subtask{}, fmt.Errorf("add subtask: epic %d: %w", s.EpicID, ErrNotFound)
	}
	if err := checkDuration(s.Duration); err != nil {
		return models.Subtask{}, fmt.Errorf("add subtask: %w", err)
	}
	if !s.Status.Valid() {
		s.Status = models.StatusNew
	}
	s.Schedule()
	if err := m.checkSchedule(s.Task, 0); err != nil {
		return models.Subtask{}, fmt.Errorf("add subtask: %w", err)
	}

	s.ID = m.allocate(id)
	stored := cloneSubtask(s)
	m.subtasks[s.ID] = &stored
	m.children[s.EpicID][s.ID] = struct{}{}
	m.refreshEpic(s.EpicID)
	return cloneSubtask(stored), nil
}

// TaskByID returns the task and records the view.
func (m *Memory) TaskByID(id int64) (models.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return models.Task{}, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	m.history.Visit(id)
	return cloneTask(*t), nil
}

// EpicByID returns the epic and records the view.
func (m *Memory) EpicByID(id int64) (models.Epic, error) {
	e, ok := m.epics[id]
	if !ok {
		return models.Epic{}, fmt.Errorf("epic %d: %w", id, ErrNotFound)
	}
	m.history.Visit(id)
	return m.epicView(e), nil
}

// SubtaskByID returns the subtask and records the view.
func (m *Memory) SubtaskByID(id int64) (models.Subtask, error) {
	s, ok := m.subtasks[id]
	if !ok {
		return models.Subtask{}, fmt.Errorf("subtask %d: %w", id, ErrNotFound)
	}
	m.history.Visit(id)
	return cloneSubtask(*s), nil
}

// UpdateTask replaces the task with the same id. An unknown status keeps
// the current one.
func (m *Memory) UpdateTask(t models.Task) (models.Task, error) {
	current, ok := m.tasks[t.ID]
	if !ok {
		return models.Task{}, fmt.Errorf("update task %d: %w", t.ID, ErrNotFound)
	}
	if err := checkDuration(t.Duration); err != nil {
		return models.Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if !t.Status.Valid() {
		t.Status = current.Status
	}
	t.Schedule()
	if err := m.checkSchedule(t, t.ID); err != nil {
		return models.Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}

	stored := cloneTask(t)
	m.tasks[t.ID] = &stored
	return cloneTask(stored), nil
}

// UpdateEpic changes title and description. Status and subtasks stay
// under the store's control.
func (m *Memory) UpdateEpic(e models.Epic) (models.Epic, error) {
	current, ok := m.epics[e.ID]
	if !ok {
		return models.Epic{}, fmt.Errorf("update epic %d: %w", e.ID, ErrNotFound)
	}
	current.Title = e.Title
	current.Description = e.Description
	return m.epicView(current), nil
}

// UpdateSubtask replaces the subtask with the same id. The epic reference
// is fixed at creation; a different EpicID in s is ignored.
func (m *Memory) UpdateSubtask(s models.Subtask) (models.Subtask, error) {
	current, ok := m.subtasks[s.ID]
	if !ok {
		return models.Subtask{}, fmt.Errorf("update subtask %d: %w", s.ID, ErrNotFound)
	}
	if err := checkDuration(s.Duration); err != nil {
		return models.Subtask{}, fmt.Errorf("update subtask %d: %w", s.ID, err)
	}
	if !s.Status.Valid() {
		s.Status = current.Status
	}
	s.EpicID = current.EpicID
	s.Schedule()
	if err := m.checkSchedule(s.Task, s.ID); err != nil {
		return models.Subtask{}, fmt.Errorf("update subtask %d: %w", s.ID, err)
	}

	statusChanged := s.Status != current.Status
	stored := cloneSubtask(s)
	m.subtasks[s.ID] = &stored
	if statusChanged {
		m.refreshEpic(s.EpicID)
	}
	return cloneSubtask(stored), nil
}

// DeleteTask removes a task and forgets it in the history.
func (m *Memory) DeleteTask(id int64) error {
	if _, ok := m.tasks[id]; !ok {
		return fmt.Errorf("delete task %d: %w", id, ErrNotFound)
	}
	delete(m.tasks, id)
	m.history.Remove(id)
	return nil
}

// DeleteEpic removes an epic together with its subtasks.
func (m *Memory) DeleteEpic(id int64) error {
	if _, ok := m.epics[id]; !ok {
		return fmt.Errorf("delete epic %d: %w", id, ErrNotFound)
	}
	for subID := range m.children[id] {
		delete(m.subtasks, subID)
		m.history.Remove(subID)
	}
	delete(m.children, id)
	delete(m.epics, id)
	m.history.Remove(id)
	return nil
}

// DeleteSubtask removes a subtask and recomputes its epic's status.
func (m *Memory) DeleteSubtask(id int64) error {
	s, ok := m.subtasks[id]
	if !ok {
		return fmt.Errorf("delete subtask %d: %w", id, ErrNotFound)
	}
	delete(m.subtasks, id)
	delete(m.children[s.EpicID], id)
	m.refreshEpic(s.EpicID)
	m.history.Remove(id)
	return nil
}

// DeleteTasks removes every task.
func (m *Memory) DeleteTasks() error {
	for id := range m.tasks {
		m.history.Remove(id)
	}
	clear(m.tasks)
	return nil
}

// DeleteEpics removes every epic and, with them, every subtask.
func (m *Memory) DeleteEpics() error {
	for id := range m.subtasks {
		m.history.Remove(id)
	}
	for id := range m.epics {
		m.history.Remove(id)
	}
	clear(m.subtasks)
	clear(m.children)
	clear(m.epics)
	return nil
}

// DeleteSubtasks removes every subtask and resets every epic to NEW.
func (m *Memory) DeleteSubtasks() error {
	for id := range m.subtasks {
		m.history.Remove(id)
	}
	clear(m.subtasks)
	for id, e := range m.epics {
		m.children[id] = make(map[int64]struct{})
		e.Status = models.StatusNew
	}
	return nil
}

// Tasks lists tasks by ascending id.
func (m *Memory) Tasks() []models.Task {
	out := make([]models.Task, 0, len(m.tasks))
	for _, id := range sortedKeys(m.tasks) {
		out = append(out, cloneTask(*m.tasks[id]))
	}
	return out
}

// Epics lists epics by ascending id.
func (m *Memory) Epics() []models.Epic {
	out := make([]models.Epic, 0, len(m.epics))
	for _, id := range sortedKeys(m.epics) {
		out = append(out, m.epicView(m.epics[id]))
	}
	return out
}

// Subtasks lists subtasks by ascending id.
func (m *Memory) Subtasks() []models.Subtask {
	out := make([]models.Subtask, 0, len(m.subtasks))
	for _, id := range sortedKeys(m.subtasks) {
		out = append(out, cloneSubtask(*m.subtasks[id]))
	}
	return out
}

// EpicSubtasks lists the subtasks of one epic by ascending id.
func (m *Memory) EpicSubtasks(epicID int64) ([]models.Subtask, error) {
	set, ok := m.children[epicID]
	if !ok {
		return nil, fmt.Errorf("epic %d: %w", epicID, ErrNotFound)
	}
	out := make([]models.Subtask, 0, len(set))
	for _, id := range sortedKeys(set) {
		out = append(out, cloneSubtask(*m.subtasks[id]))
	}
	return out, nil
}

// Prioritized lists tasks and subtasks by start time. Unscheduled items
// come last; ties are broken by id.
func (m *Memory) Prioritized() []models.Entry {
	type ranked struct {
		start time.Time
		has   bool
		entry models.Entry
	}
	items := make([]ranked, 0, len(m.tasks)+len(m.subtasks))
	for _, t := range m.Tasks() {
		start, _, ok := t.Interval()
		items = append(items, ranked{start: start, has: ok, entry: models.Entry{Type: models.TypeTask, Task: &t}})
	}
	for _, s := range m.Subtasks() {
		start, _, ok := s.Interval()
		items = append(items, ranked{start: start, has: ok, entry: models.Entry{Type: models.TypeSubtask, Subtask: &s}})
	}

	slices.SortFunc(items, func(a, b ranked) int {
		if a.has != b.has {
			if a.has {
				return -1
			}
			return 1
		}
		if c := a.start.Compare(b.start); c != 0 {
			return c
		}
		return cmp.Compare(a.entry.ID(), b.entry.ID())
	})

	out := make([]models.Entry, len(items))
	for i, item := range items {
		out[i] = item.entry
	}
	return out
}

// History returns the viewed ids, oldest first.
func (m *Memory) History() []int64 {
	return m.history.IDs()
}

// Entry resolves id across all kinds without recording a view.
func (m *Memory) Entry(id int64) (models.Entry, bool) {
	if t, ok := m.tasks[id]; ok {
		c := cloneTask(*t)
		return models.Entry{Type: models.TypeTask, Task: &c}, true
	}
	if e, ok := m.epics[id]; ok {
		c := m.epicView(e)
		return models.Entry{Type: models.TypeEpic, Epic: &c}, true
	}
	if s, ok := m.subtasks[id]; ok {
		c := cloneSubtask(*s)
		return models.Entry{Type: models.TypeSubtask, Subtask: &c}, true
	}
	return models.Entry{}, false
}

// allocate returns the next id, or id itself when restoring. Restored ids
// push the counter forward so later allocations never collide.
func (m *Memory) allocate(id int64) int64 {
	if id == 0 {
		m.nextID++
		return m.nextID
	}
	if id > m.nextID {
		m.nextID = id
	}
	return id
}

// checkCapacity fails when a fresh id is needed and the counter is spent.
func (m *Memory) checkCapacity(id int64) error {
	if id == 0 && m.nextID == math.MaxInt64 {
		return fmt.Errorf("identifiers exhausted: %w", ErrInvalid)
	}
	return nil
}

func checkDuration(d int64) error {
	if d < 0 || d > models.MaxDuration {
		return fmt.Errorf("duration %d: %w", d, ErrInvalid)
	}
	return nil
}

func (m *Memory) checkRestoreID(id int64) error {
	// MaxInt64 would leave no room for the next allocation.
	if id <= 0 || id == math.MaxInt64 {
		return fmt.Errorf("id %d: %w", id, ErrFormat)
	}
	if _, used := m.Entry(id); used {
		return fmt.Errorf("duplicate id %d: %w", id, ErrFormat)
	}
	return nil
}

// checkSchedule runs before any mutation so a conflict leaves the store
// untouched.
func (m *Memory) checkSchedule(t models.Task, exclude int64) error {
	candidate, ok := intervalOf(t)
	if !ok {
		return nil
	}
	if other, found := findConflict(candidate, exclude, m.scheduled()); found {
		return fmt.Errorf("[%s, %s) overlaps item %d: %w",
			candidate.start.Format(time.RFC3339), candidate.end.Format(time.RFC3339), other, ErrScheduleConflict)
	}
	return nil
}

// scheduled yields every task and subtask in ascending id order.
func (m *Memory) scheduled() iter.Seq[models.Task] {
	return func(yield func(models.Task) bool) {
		for _, id := range sortedKeys(m.tasks) {
			if !yield(*m.tasks[id]) {
				return
			}
		}
		for _, id := range sortedKeys(m.subtasks) {
			if !yield(m.subtasks[id].Task) {
				return
			}
		}
	}
}

func (m *Memory) refreshEpic(epicID int64) {
	e, ok := m.epics[epicID]
	if !ok {
		return
	}
	statuses := make([]models.Status, 0, len(m.children[epicID]))
	for id := range m.children[epicID] {
		statuses = append(statuses, m.subtasks[id].Status)
	}
	e.Status = deriveStatus(statuses)
}

// deriveStatus: NEW when empty or all NEW, DONE when all DONE, otherwise
// IN_PROGRESS.
func deriveStatus(statuses []models.Status) models.Status {
	var fresh, done int
	for _, s := range statuses {
		switch s {
		case models.StatusNew:
			fresh++
		case models.StatusDone:
			done++
		}
	}
	switch {
	case fresh == len(statuses):
		return models.StatusNew
	case done == len(statuses):
		return models.StatusDone
	default:
		return models.StatusInProgress
	}
}

func (m *Memory) epicView(e *models.Epic) models.Epic {
	view := *e
	view.SubtaskIDs = sortedKeys(m.children[e.ID])
	if view.SubtaskIDs == nil {
		view.SubtaskIDs = []int64{}
	}
	return view
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func cloneTask(t models.Task) models.Task {
	t.StartTime = cloneTime(t.StartTime)
	t.EndTime = cloneTime(t.EndTime)
	return t
}

func cloneSubtask(s models.Subtask) models.Subtask {
	s.Task = cloneTask(s.Task)
	return s
}
