// Command migrate manages the catalog-sync database schema.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erp/catalog-sync/internal/infrastructure/config"
	"github.com/erp/catalog-sync/internal/infrastructure/logger"
	"github.com/erp/catalog-sync/internal/infrastructure/migration"
	"github.com/erp/catalog-sync/migrations"
)

// command is one migrate subcommand. Offline commands run without a
// database connection.
type command struct {
	usage   string
	minArgs int
	offline func(env *cliEnv, args []string) error
	schema  func(env *cliEnv, m *migration.Migrator, args []string) error
}

type cliEnv struct {
	dir string
	log *zap.Logger
}

var commands = map[string]command{
	"up":   {usage: "Apply all pending migrations", schema: func(_ *cliEnv, m *migration.Migrator, _ []string) error { return m.Up() }},
	"down": {usage: "Roll back all migrations", schema: func(_ *cliEnv, m *migration.Migrator, _ []string) error { return m.Down() }},
	"step": {usage: "<n>  Apply n migrations, negative rolls back", minArgs: 1, schema: func(_ *cliEnv, m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {usage: "<version>  Migrate to a specific version", minArgs: 1, schema: func(_ *cliEnv, m *migration.Migrator, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {usage: "<version>  Mark a version as applied to clear a dirty schema", minArgs: 1, schema: func(_ *cliEnv, m *migration.Migrator, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"status": {usage: "Show the applied and latest versions", schema: status},
	"create": {usage: "<name> [description]  Write a new up/down pair", minArgs: 1, offline: create},
	"list":   {usage: "List available migrations", offline: list},
}

func main() {
	var dir, logLevel string
	flag.StringVar(&dir, "path", "", "Migrations directory (default: schema embedded in the binary)")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	name, args := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok || len(args) < cmd.minArgs {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
		Service:    "catalog-sync-migrate",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	env := &cliEnv{dir: dir, log: log}
	if err := execute(env, cmd, args); err != nil {
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func execute(env *cliEnv, cmd command, args []string) error {
	if cmd.offline != nil {
		return cmd.offline(env, args)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	m, err := migration.New(db, env.dir, env.log)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer func() { _ = m.Close() }()
	return cmd.schema(env, m, args)
}

func status(env *cliEnv, m *migration.Migrator, _ []string) error {
	st, err := m.Status()
	if err != nil {
		return err
	}
	env.log.Info("Schema status",
		zap.Uint("current", st.Current),
		zap.Uint("latest", st.Latest),
		zap.Bool("dirty", st.Dirty),
		zap.Bool("pending", st.Pending()),
	)
	return nil
}

func create(env *cliEnv, args []string) error {
	dir := env.dir
	if dir == "" {
		dir = "migrations"
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	env.log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(env *cliEnv, _ []string) error {
	var fsys fs.FS = migrations.FS
	if env.dir != "" {
		fsys = os.DirFS(env.dir)
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	env.log.Info("Available migrations", zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println("  -", name)
	}
	return nil
}

func printUsage() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(os.Stderr, "Catalog sync schema migrations\n\nUsage:\n  migrate [flags] <command> [arguments]\n\nCommands:")
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].usage)
	}
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nThe database comes from CSYNC_DATABASE_* (host, port, user, password, dbname, sslmode).")
}
