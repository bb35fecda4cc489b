package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"tracker/internal/manager"
	"tracker/internal/models"
	"tracker/internal/storage/persist"
)

func dumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the stored tasks, epics, subtasks and history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cfg)

			backend, closeBackend, err := openBackend(cfg, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer closeBackend()

			m, err := persist.Restore(backend)
			if err != nil {
				return err
			}

			savedAt, err := snapshotTime(cmd.Context(), backend)
			if err != nil {
				return err
			}

			asJSON, _ := cmd.Flags().GetBool("json")
			if asJSON {
				return dumpJSON(cmd.OutOrStdout(), m, savedAt)
			}
			return dumpTable(cmd.OutOrStdout(), m, savedAt)
		},
	}

	cmd.Flags().BoolP("json", "j", false, "Output as JSON")

	return cmd
}

// snapshotTime asks backends that track it when the snapshot was written.
// The zero time means unknown or nothing stored yet.
func snapshotTime(ctx context.Context, backend persist.Backend) (time.Time, error) {
	timed, ok := backend.(interface {
		UpdatedAt(context.Context) (time.Time, error)
	})
	if !ok {
		return time.Time{}, nil
	}
	ts, err := timed.UpdatedAt(ctx)
	if errors.Is(err, manager.ErrNotFound) {
		return time.Time{}, nil
	}
	return ts, err
}

func dumpJSON(w io.Writer, m manager.Manager, savedAt time.Time) error {
	out := map[string]any{
		"tasks":    m.Tasks(),
		"epics":    m.Epics(),
		"subtasks": m.Subtasks(),
		"history":  m.History(),
	}
	if !savedAt.IsZero() {
		out["saved_at"] = savedAt.UTC()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func dumpTable(w io.Writer, m manager.Manager, savedAt time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tTITLE\tEPIC\tSTART\tEND")
	for _, t := range m.Tasks() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\t%s\t%s\n", t.ID, models.TypeTask, t.Status, t.Title, formatTime(t.StartTime), formatTime(t.EndTime))
	}
	for _, e := range m.Epics() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\t\t\n", e.ID, models.TypeEpic, e.Status, e.Title)
	}
	for _, s := range m.Subtasks() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", s.ID, models.TypeSubtask, s.Status, s.Title, s.EpicID, formatTime(s.StartTime), formatTime(s.EndTime))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	ids := make([]string, 0)
	for _, id := range m.History() {
		ids = append(ids, fmt.Sprint(id))
	}
	if _, err := fmt.Fprintf(w, "\nhistory: %s\n", strings.Join(ids, " ")); err != nil {
		return err
	}
	if !savedAt.IsZero() {
		if _, err := fmt.Fprintf(w, "saved at: %s\n", formatTime(&savedAt)); err != nil {
			return err
		}
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}
