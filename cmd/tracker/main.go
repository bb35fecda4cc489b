package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"tracker/internal/config"
	"tracker/internal/storage/file"
	"tracker/internal/storage/persist"
	"tracker/internal/storage/sqlite"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "tracker",
		Short:        "Task tracker with epics, subtasks and view history",
		Version:      Version,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", config.Path(), "Path to YAML config file")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend (file, sqlite)")
	rootCmd.PersistentFlags().String("data", "", "Snapshot file for the file backend")
	rootCmd.PersistentFlags().String("db", "", "Database path for the sqlite backend")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(dumpCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig merges defaults, the config file, TRACKER_* variables and any
// flags set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := config.New()
	bindings := map[string]string{
		"storage.backend":     "backend",
		"storage.path":        "data",
		"storage.sqlite_path": "db",
		"addr":                "addr",
	}
	for key, name := range bindings {
		if err := bindFlag(v, cmd, key, name); err != nil {
			return nil, err
		}
	}

	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.Load(v, path)
}

func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil {
		return nil
	}
	return v.BindPFlag(key, flag)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
}

// openBackend returns the configured snapshot backend and a function that
// releases it.
func openBackend(cfg *config.Config, logger *slog.Logger) (persist.Backend, func() error, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Storage.SQLitePath, cfg.Storage.Key, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return file.New(cfg.Storage.Path), func() error { return nil }, nil
	}
}
