// Package codec reads and writes the line-oriented snapshot format:
//
//	id,type,name,status,description,epic,duration,startTime,endTime
//	<task, epic and subtask lines>
//	<blank line>
//	<history ids, oldest first, comma separated>
//
// Absent start and end times are written as "null".
package codec

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"tracker/internal/manager"
	"tracker/internal/models"
)

// Header is the first line of every snapshot.
const Header = "id,type,name,status,description,epic,duration,startTime,endTime"

const (
	valueDelimiter = ","
	absent         = "null"
	columns        = 9
	timeLayout     = time.RFC3339Nano
)

// Source is the read side of a manager needed to write a snapshot.
type Source interface {
	Tasks() []models.Task
	Epics() []models.Epic
	Subtasks() []models.Subtask
	History() []int64
}

// Target is what Decode restores into. Entities keep their ids; the
// history is replayed through the *ByID lookups.
type Target interface {
	RestoreTask(t models.Task) (models.Task, error)
	RestoreEpic(e models.Epic) (models.Epic, error)
	RestoreSubtask(s models.Subtask) (models.Subtask, error)
	TaskByID(id int64) (models.Task, error)
	EpicByID(id int64) (models.Epic, error)
	SubtaskByID(id int64) (models.Subtask, error)
	Entry(id int64) (models.Entry, bool)
}

// Marshal renders src as a snapshot.
func Marshal(src Source) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, src); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes src to w. Text fields containing a comma or a line break
// cannot be represented and fail with manager.ErrFormat.
func Encode(w io.Writer, src Source) error {
	lines := []string{Header}
	for _, t := range src.Tasks() {
		line, err := taskLine(models.TypeTask, t, "")
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	for _, e := range src.Epics() {
		line, err := epicLine(e)
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	for _, s := range src.Subtasks() {
		line, err := taskLine(models.TypeSubtask, s.Task, strconv.FormatInt(s.EpicID, 10))
		if err != nil {
			return err
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", historyLine(src.History()))

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write snapshot: %w: %w", manager.ErrIO, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write snapshot: %w: %w", manager.ErrIO, err)
	}
	return nil
}

// Unmarshal restores data into dst.
func Unmarshal(data []byte, dst Target) error {
	return Decode(bytes.NewReader(data), dst)
}

// Decode reads a snapshot from r into dst. Entities are restored in file
// order, so schedule and epic checks apply exactly as on live inserts.
// Empty input restores nothing.
func Decode(r io.Reader, dst Target) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read snapshot: %w: %w", manager.ErrIO, err)
	}
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	if lines[0] != Header {
		return fmt.Errorf("line 1: unexpected header %q: %w", lines[0], manager.ErrFormat)
	}
	body := lines[1:]
	var history string
	if len(body) > 0 {
		history = body[len(body)-1]
		body = body[:len(body)-1]
	}

	for i, line := range body {
		if line == "" {
			continue
		}
		if err := restoreLine(dst, line); err != nil {
			return fmt.Errorf("line %d: %w", i+2, err)
		}
	}

	if strings.TrimSpace(history) == "" {
		return nil
	}
	ids, err := parseHistory(history)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := replay(dst, id); err != nil {
			return fmt.Errorf("history: %w", err)
		}
	}
	return nil
}

func restoreLine(dst Target, line string) error {
	fields := strings.Split(line, valueDelimiter)
	if len(fields) != columns {
		return fmt.Errorf("expected %d columns, got %d: %w", columns, len(fields), manager.ErrFormat)
	}

	id, err := parseInt(fields[0], "id")
	if err != nil {
		return err
	}

	switch models.Type(fields[1]) {
	case models.TypeTask:
		t, err := parseTask(id, fields)
		if err != nil {
			return err
		}
		_, err = dst.RestoreTask(t)
		return err
	case models.TypeEpic:
		_, err := dst.RestoreEpic(models.Epic{
			ID:          id,
			Title:       fields[2],
			Status:      models.Status(fields[3]),
			Description: fields[4],
		})
		return err
	case models.TypeSubtask:
		t, err := parseTask(id, fields)
		if err != nil {
			return err
		}
		epicID, err := parseInt(fields[5], "epic")
		if err != nil {
			return err
		}
		_, err = dst.RestoreSubtask(models.Subtask{Task: t, EpicID: epicID})
		return err
	default:
		return fmt.Errorf("unknown type %q: %w", fields[1], manager.ErrFormat)
	}
}

func parseTask(id int64, fields []string) (models.Task, error) {
	status := models.Status(fields[3])
	if !status.Valid() {
		return models.Task{}, fmt.Errorf("unknown status %q: %w", fields[3], manager.ErrFormat)
	}
	var duration int64
	if fields[6] != "" {
		d, err := parseInt(fields[6], "duration")
		if err != nil {
			return models.Task{}, err
		}
		if d < 0 || d > models.MaxDuration {
			return models.Task{}, fmt.Errorf("duration %d out of range: %w", d, manager.ErrFormat)
		}
		duration = d
	}
	start, err := parseTime(fields[7], "startTime")
	if err != nil {
		return models.Task{}, err
	}
	// endTime is derived from start and duration; it is only checked for
	// being well formed.
	if _, err := parseTime(fields[8], "endTime"); err != nil {
		return models.Task{}, err
	}
	return models.Task{
		ID:          id,
		Title:       fields[2],
		Status:      status,
		Description: fields[4],
		Duration:    duration,
		StartTime:   start,
	}, nil
}

func replay(dst Target, id int64) error {
	entry, ok := dst.Entry(id)
	if !ok {
		return fmt.Errorf("id %d: %w", id, manager.ErrNotFound)
	}
	var err error
	switch entry.Type {
	case models.TypeTask:
		_, err = dst.TaskByID(id)
	case models.TypeEpic:
		_, err = dst.EpicByID(id)
	default:
		_, err = dst.SubtaskByID(id)
	}
	return err
}

func taskLine(typ models.Type, t models.Task, epic string) (string, error) {
	if err := checkText(t.ID, t.Title, t.Description); err != nil {
		return "", err
	}
	return strings.Join([]string{
		strconv.FormatInt(t.ID, 10),
		string(typ),
		t.Title,
		string(t.Status),
		t.Description,
		epic,
		strconv.FormatInt(t.Duration, 10),
		formatTime(t.StartTime),
		formatTime(t.EndTime),
	}, valueDelimiter), nil
}

func epicLine(e models.Epic) (string, error) {
	if err := checkText(e.ID, e.Title, e.Description); err != nil {
		return "", err
	}
	return strings.Join([]string{
		strconv.FormatInt(e.ID, 10),
		string(models.TypeEpic),
		e.Title,
		string(e.Status),
		e.Description,
		"", "", "", "",
	}, valueDelimiter), nil
}

func historyLine(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, valueDelimiter)
}

func parseHistory(line string) ([]int64, error) {
	parts := strings.Split(line, valueDelimiter)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := parseInt(strings.TrimSpace(p), "history id")
		if err != nil {
			return nil, fmt.Errorf("history: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// CheckText reports whether s can be stored in a snapshot field.
func CheckText(s string) bool {
	return !strings.ContainsAny(s, ",\r\n")
}

func checkText(id int64, values ...string) error {
	for _, v := range values {
		if !CheckText(v) {
			return fmt.Errorf("item %d: text %q contains a delimiter: %w", id, v, manager.ErrFormat)
		}
	}
	return nil
}

func parseInt(s, field string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", field, s, manager.ErrFormat)
	}
	return v, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return absent
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s, field string) (*time.Time, error) {
	if s == "" || s == absent {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", field, s, manager.ErrFormat)
	}
	return &t, nil
}
