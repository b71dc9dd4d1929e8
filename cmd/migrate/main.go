// ABOUTME: Standalone schema migration utility for the SQLite and PostgreSQL stores
// ABOUTME: Applies, rolls back or reports embedded migrations, backing up SQLite files first

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/harperreed/dealdesk/config"
	"github.com/harperreed/dealdesk/db"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: $XDG_CONFIG_HOME/dealdesk/config.yaml)")
	backend := flag.String("backend", "", "sqlite or postgres (default from config)")
	dbPath := flag.String("db", "", "SQLite database path (default from config)")
	dbURL := flag.String("url", "", "PostgreSQL URL (default from config or DEALDESK_DATABASE_URL)")
	backup := flag.Bool("backup", true, "Copy the SQLite file before changing it")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: migrate [flags] up|down|version|steps N|force V\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	if *backend != "" {
		cfg.Backend = *backend
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}

	if err := run(logger, cfg, *backup, flag.Args()); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}

func run(log *zap.Logger, cfg *config.Config, backup bool, args []string) error {
	var dialect, dsn string
	switch cfg.Backend {
	case config.BackendSQLite:
		dialect, dsn = db.DialectSQLite, cfg.DBPath
	case config.BackendPostgres:
		dialect, dsn = db.DialectPostgres, cfg.DatabaseURL
	default:
		return fmt.Errorf("backend %q has no schema to migrate", cfg.Backend)
	}

	m, err := db.NewMigrator(dialect, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	cmd := args[0]
	if cmd == "version" {
		return printVersion(m)
	}

	if backup && dialect == db.DialectSQLite {
		path, err := backupFile(dsn)
		if err != nil {
			return err
		}
		if path != "" {
			log.Info("backup created", zap.String("path", path))
		}
	}

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	case "steps", "force":
		if len(args) < 2 {
			return fmt.Errorf("%s needs a number", cmd)
		}
		n, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			return fmt.Errorf("invalid number %q: %w", args[1], convErr)
		}
		if cmd == "steps" {
			err = m.Steps(n)
		} else {
			err = m.Force(n)
		}
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}

	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("schema already current")
		return printVersion(m)
	}
	if err != nil {
		return err
	}
	log.Info("migration applied", zap.String("command", cmd))
	return printVersion(m)
}

func printVersion(m *migrate.Migrate) error {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		fmt.Println("version: none")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("version: %d dirty: %v\n", v, dirty)
	return nil
}

// backupFile copies path next to itself with a timestamp suffix. A missing
// file has nothing to back up.
func backupFile(path string) (string, error) {
	src, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to open database: %w", err)
	}
	defer src.Close()

	backupPath := fmt.Sprintf("%s.backup.%s", path, time.Now().Format("20060102-150405"))
	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to create backup: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return "", fmt.Errorf("failed to write backup: %w", err)
	}
	return backupPath, dst.Close()
}
