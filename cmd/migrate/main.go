package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/agrolink/backend/internal/infrastructure/config"
	"github.com/agrolink/backend/internal/infrastructure/logger"
	"github.com/agrolink/backend/internal/infrastructure/migration"
	"github.com/agrolink/backend/migrations"
)

const usage = `agrolink schema migrations

Usage:
  migrate [-path dir] [-log-level level] <command> [arguments]

Commands:
  up                    apply every pending migration
  down                  roll back every migration
  step <n>              apply n migrations, negative n rolls back
  version               print the applied version
  force <version>       record version as applied without running it
  create <name> [desc]  write a new up/down file pair
  list                  list known migrations

Without -path the migrations embedded in the binary are used; create writes
to ./migrations. Connection settings come from AGRO_DATABASE_*.`

// errUsage marks a command line that cannot be run
var errUsage = errors.New("invalid usage")

// command is one migrate subcommand. Offline commands never open a connection.
type command struct {
	args    int
	offline func(log *zap.Logger, dir string, args []string) error
	online  func(log *zap.Logger, m *migration.Migrator, args []string) error
}

var commands = map[string]command{
	"up":      {online: func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Up() }},
	"down":    {online: func(_ *zap.Logger, m *migration.Migrator, _ []string) error { return m.Down() }},
	"step":    {args: 1, online: runStep},
	"version": {online: runVersion},
	"force":   {args: 1, online: runForce},
	"create":  {args: 1, offline: runCreate},
	"list":    {offline: runList},
}

func main() {
	path := flag.String("path", "", "migrations directory instead of the embedded set")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	log, err := logger.New(&logger.Config{
		Level:      *level,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
		Fields:     map[string]string{"component": "migrate"},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync(log) }()

	if err := run(log, *path, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
		}
		log.Error("Migration command failed", zap.Error(err))
		_ = logger.Sync(log)
		os.Exit(1)
	}
}

func run(log *zap.Logger, path string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: command required", errUsage)
	}
	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	if len(rest) < cmd.args {
		return fmt.Errorf("%w: %s needs %d argument(s)", errUsage, name, cmd.args)
	}

	if cmd.offline != nil {
		return cmd.offline(log, path, rest)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	var source fs.FS = migrations.FS
	if path != "" {
		source = os.DirFS(path)
	}
	// Closing the migrator closes db
	m, err := migration.New(db, source, migration.Config{}, log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()

	log.Info("Running migration command", zap.String("command", name), zap.Bool("embedded", path == ""))
	return cmd.online(log, m, rest)
}

func intArg(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", errUsage, name, value)
	}
	return n, nil
}

func runStep(_ *zap.Logger, m *migration.Migrator, args []string) error {
	n, err := intArg("step count", args[0])
	if err != nil {
		return err
	}
	return m.Steps(n)
}

func runForce(log *zap.Logger, m *migration.Migrator, args []string) error {
	version, err := intArg("version", args[0])
	if err != nil {
		return err
	}
	log.Warn("Forcing migration version without running it", zap.Int("version", version))
	return m.Force(version)
}

func runVersion(log *zap.Logger, m *migration.Migrator, _ []string) error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	if version == 0 {
		log.Info("No migrations applied")
		return nil
	}
	log.Info("Schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func runCreate(log *zap.Logger, dir string, args []string) error {
	if dir == "" {
		dir = "migrations"
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up", mf.UpPath),
		zap.String("down", mf.DownPath),
	)
	return nil
}

func runList(log *zap.Logger, dir string, _ []string) error {
	var (
		names []string
		err   error
	)
	if dir == "" {
		names, err = migration.ListMigrationsFS(migrations.FS)
	} else {
		names, err = migration.ListMigrations(dir)
	}
	if err != nil {
		return err
	}
	log.Info("Known migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
