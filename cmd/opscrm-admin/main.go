// Command opscrm-admin holds operator tasks that run beside the API: schema
// migrations, dev data, bearer tokens and a terminal checklist client.
package main

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/bootstrap"
)

type commandFn func(ctx *commandContext, args []string) error

type command struct {
	name        string
	description string
	run         commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
}

const defaultMigrationTimeout = 5 * time.Minute

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr)) //nolint:forbidigo // exit status is the CLI contract
}

func run(args []string, stdout, stderr io.Writer) int {
	logger := bootstrap.InitLogger()

	var cmd command
	if len(args) > 0 {
		cmd = commands()[args[0]]
	}
	if cmd.run == nil {
		if len(args) > 0 {
			_ = writef(stderr, "unknown command %q\n\n", args[0])
		}
		if err := usage(stdout); err != nil {
			logger.Error("print usage failed", "error", err)
		}
		return exitUsage
	}

	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		return exitError
	}

	cmdCtx := &commandContext{
		Ctx:    context.Background(),
		Logger: bootstrap.ConfigureLogger(cfg.Log).With("command", cmd.name),
		Config: cfg,
	}
	if err = cmd.run(cmdCtx, args[1:]); err != nil {
		cmdCtx.Logger.Error("command failed", "error", err)
		return exitError
	}
	return exitOK
}

func commands() map[string]command {
	list := []command{
		{name: "migrate", description: "Run database migrations", run: runMigrations},
		{name: "db-reset", description: "Drop the public schema, migrate and optionally seed", run: runDBReset},
		{name: "db-seed", description: "Migrate and load development data", run: runDBSeed},
		{name: "issue-token", description: "Sign an API bearer token for a staff member", run: runIssueToken},
		{name: "checklist", description: "Show or tick a job's checklist through the API", run: runChecklist},
	}
	byName := make(map[string]command, len(list))
	for _, c := range list {
		byName[c.name] = c
	}
	return byName
}

func usage(w io.Writer) error {
	if err := writef(w, "Usage: opscrm-admin <command> [flags]\n\nAvailable commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	for _, name := range slices.Sorted(maps.Keys(cmds)) {
		if err := writef(w, "  %-16s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}
