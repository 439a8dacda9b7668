package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/target/opscrm-api/internal/bootstrap"
	"github.com/target/opscrm-api/internal/devseed"
)

// dbOptions covers the flags of migrate, db-reset and db-seed. Only db-reset
// registers Yes and Seed; migrate never touches data so it has no remote guard.
type dbOptions struct {
	Timeout     time.Duration
	AllowRemote bool
	Yes         bool
	Seed        bool
}

func parseDBFlags(name string, args []string) (dbOptions, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var opts dbOptions
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout, "Upper bound on how long the command may run")
	if name != "migrate" {
		fs.BoolVar(&opts.AllowRemote, "allow-remote", false, "Permit database hosts that do not look local")
	}
	if name == "db-reset" {
		fs.BoolVar(&opts.Yes, "yes", false, "Skip the confirmation prompt for local hosts")
		fs.BoolVar(&opts.Seed, "seed", false, "Seed development data once the schema is rebuilt")
	}

	if err := fs.Parse(args); err != nil {
		return dbOptions{}, err
	}
	if opts.Timeout <= 0 {
		return dbOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("migrate", args)
	if err != nil {
		return err
	}
	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		return migrate(ctx, db, cmdCtx.Logger)
	})
}

func runDBReset(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("db-reset", args)
	if err != nil {
		return err
	}
	pg := cmdCtx.Config.Postgres
	if err := checkRemote(pg.Host, opts.AllowRemote); err != nil {
		return err
	}
	target := fmt.Sprintf("database %q on %s:%d", pg.Name, pg.Host, pg.Port)
	if c := resetConfirmation(target, pg.Host, opts.Yes); c != nil {
		if err := c.ask(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		cmdCtx.Logger.InfoContext(ctx, "dropping public schema", "database", pg.Name)
		if err := resetSchema(ctx, db, pg.User, cmdCtx.Logger); err != nil {
			return err
		}
		if err := migrate(ctx, db, cmdCtx.Logger); err != nil {
			return err
		}
		if opts.Seed {
			return seed(ctx, db, cmdCtx.Logger)
		}
		return nil
	})
}

func runDBSeed(cmdCtx *commandContext, args []string) error {
	opts, err := parseDBFlags("db-seed", args)
	if err != nil {
		return err
	}
	host := cmdCtx.Config.Postgres.Host
	if err := checkRemote(host, opts.AllowRemote); err != nil {
		return err
	}
	if isLikelyRemoteHost(host) {
		c := confirmation{
			warning: fmt.Sprintf("WARNING: database host %q does not look local. Development data will be written to it.", host),
			expect:  host,
		}
		if err := c.ask(os.Stdin, os.Stderr); err != nil {
			return err
		}
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		if err := migrate(ctx, db, cmdCtx.Logger); err != nil {
			return err
		}
		return seed(ctx, db, cmdCtx.Logger)
	})
}

func migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	logger.InfoContext(ctx, "running database migrations")
	if err := bootstrap.RunMigrations(ctx, db, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func seed(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	svcs, err := devseed.NewServices(db, logger)
	if err != nil {
		return fmt.Errorf("wire seed services: %w", err)
	}
	if err := devseed.Run(ctx, svcs, logger); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}
	logger.InfoContext(ctx, "development data seeded")
	return nil
}

func withDatabase(cmdCtx *commandContext, timeout time.Duration, fn func(context.Context, *sql.DB) error) error {
	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{DBConfig: cmdCtx.Config.Postgres, Logger: cmdCtx.Logger})
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", cerr)
		}
	}()
	return fn(ctx, db)
}

func checkRemote(host string, allow bool) error {
	if isLikelyRemoteHost(host) && !allow {
		return fmt.Errorf("refusing to touch database host %q that does not look local; pass --allow-remote if this is intended", host)
	}
	return nil
}

// resetConfirmation returns nil when a reset may go ahead unprompted. A remote
// host always requires typing its name back, even with --yes.
func resetConfirmation(target, host string, yes bool) *confirmation {
	if isLikelyRemoteHost(host) {
		return &confirmation{
			warning: fmt.Sprintf("WARNING: %s is not on a local host. Its public schema will be dropped.", target),
			expect:  host,
		}
	}
	if yes {
		return nil
	}
	return &confirmation{warning: fmt.Sprintf("WARNING: the public schema of %s will be dropped and rebuilt.", target)}
}

func resetSchema(ctx context.Context, db *sql.DB, owner string, logger *slog.Logger) error {
	stmts := []string{
		"DROP SCHEMA public CASCADE",
		"CREATE SCHEMA public",
		"GRANT ALL ON SCHEMA public TO public",
	}
	if owner = strings.TrimSpace(owner); owner != "" && !strings.EqualFold(owner, "public") {
		stmts = append(stmts, "GRANT ALL ON SCHEMA public TO "+quoteIdentifier(owner))
	}
	for _, stmt := range stmts {
		logger.DebugContext(ctx, "reset statement", "sql", stmt)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}

func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func isLikelyRemoteHost(host string) bool {
	h := strings.ToLower(strings.TrimSpace(host))
	switch {
	case h == "", h == "localhost", strings.HasSuffix(h, ".local"):
		return false
	}
	if ip := net.ParseIP(h); ip != nil {
		return !ip.IsLoopback()
	}
	return true
}
