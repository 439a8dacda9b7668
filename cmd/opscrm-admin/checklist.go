package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/target/opscrm-api/internal/client"
	"github.com/target/opscrm-api/internal/domain/checklist"
	"github.com/target/opscrm-api/internal/domain/model"
)

const apiTokenEnv = "OPSCRM_API_TOKEN"

type checklistOptions struct {
	JobID       string
	BaseURL     string
	Token       string
	Toggle      []string
	Interactive bool
	Timeout     time.Duration
	QuietPeriod time.Duration
}

type checklistAPI interface {
	checklist.Persister
	GetChecklist(ctx context.Context, jobID string) (*model.JobChecklistState, error)
}

func runChecklist(cmdCtx *commandContext, args []string) error {
	opts, err := parseChecklistFlags(args, cmdCtx.Config.HTTP.BaseURL, os.Getenv(apiTokenEnv))
	if err != nil {
		return err
	}
	opts.QuietPeriod = cmdCtx.Config.Checklist.Debounce

	api, err := client.New(client.Options{BaseURL: opts.BaseURL, Token: opts.Token})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmdCtx.Ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return checklistSession(ctx, checklistSessionDeps{
		API:    api,
		In:     os.Stdin,
		Out:    os.Stdout,
		Logger: cmdCtx.Logger,
	}, opts)
}

type checklistSessionDeps struct {
	API    checklistAPI
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

func checklistSession(ctx context.Context, deps checklistSessionDeps, opts checklistOptions) error {
	loadCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	st, err := deps.API.GetChecklist(loadCtx, opts.JobID)
	cancel()
	if err != nil {
		return fmt.Errorf("load checklist: %w", err)
	}
	if st.TemplateID == nil || len(st.Items) == 0 {
		return writef(deps.Out, "Job %s has no checklist attached.\n", opts.JobID)
	}

	order := make([]string, 0, len(st.Items))
	initial := make(map[string]bool, len(st.Items))
	for _, it := range st.Items {
		order = append(order, it.Text)
		initial[it.Text] = it.Done
	}

	tracker, err := checklist.NewTracker(checklist.TrackerOptions{
		JobID:       opts.JobID,
		Persister:   deps.API,
		Initial:     initial,
		QuietPeriod: opts.QuietPeriod,
		ReadOnly:    !st.CanMutate,
		Logger:      deps.Logger,
		OnError: func(err error) {
			_ = writef(deps.Out, "save failed: %v\n", err)
		},
	})
	if err != nil {
		return err
	}
	defer tracker.Close()

	header := st.TemplateName
	if tracker.ReadOnly() {
		header += " (read only)"
	}
	if err := writef(deps.Out, "%s\n", header); err != nil {
		return err
	}
	if err := printChecklist(deps.Out, order, tracker); err != nil {
		return err
	}

	if len(opts.Toggle) > 0 {
		for _, item := range opts.Toggle {
			if err := tracker.Toggle(item); err != nil {
				return fmt.Errorf("toggle %q: %w", item, err)
			}
		}
		if err := saveAndReport(ctx, deps.Out, order, tracker, opts.Timeout); err != nil {
			return err
		}
	}

	if !opts.Interactive {
		return nil
	}
	return checklistLoop(ctx, deps, order, tracker, opts.Timeout)
}

func checklistLoop(
	ctx context.Context,
	deps checklistSessionDeps,
	order []string,
	tracker *checklist.Tracker,
	timeout time.Duration,
) error {
	if err := writeln(deps.Out, "Enter an item number to toggle, s to save, p to print, q to save and quit."); err != nil {
		return err
	}
	scanner := bufio.NewScanner(deps.In)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "q":
			return saveAndReport(ctx, deps.Out, order, tracker, timeout)
		case "s":
			if err := saveAndReport(ctx, deps.Out, order, tracker, timeout); err != nil {
				_ = writef(deps.Out, "%v\n", err)
			}
			continue
		case "p":
			if err := printChecklist(deps.Out, order, tracker); err != nil {
				return err
			}
			continue
		}

		n, err := strconv.Atoi(line)
		if err != nil || n < 1 || n > len(order) {
			_ = writef(deps.Out, "no item %q\n", line)
			continue
		}
		if err := tracker.Toggle(order[n-1]); err != nil {
			_ = writef(deps.Out, "%v\n", err)
			continue
		}
		if err := printChecklist(deps.Out, order, tracker); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	// End of input saves whatever is pending.
	return saveAndReport(ctx, deps.Out, order, tracker, timeout)
}

func saveAndReport(ctx context.Context, out io.Writer, order []string, tracker *checklist.Tracker, timeout time.Duration) error {
	if tracker.ReadOnly() {
		return nil
	}
	saveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := tracker.SaveNow(saveCtx); err != nil {
		return fmt.Errorf("save checklist: %w", err)
	}
	done, total := tracker.Progress()
	return writef(out, "saved: %d/%d complete (%d%%)\n", done, total, checklist.Percent(done, total))
}

func printChecklist(out io.Writer, order []string, tracker *checklist.Tracker) error {
	items := tracker.Items()
	for i, text := range order {
		mark := " "
		if items[text] {
			mark = "x"
		}
		if err := writef(out, "  %2d [%s] %s\n", i+1, mark, text); err != nil {
			return err
		}
	}
	done, total := tracker.Progress()
	suffix := ""
	if tracker.Dirty() {
		suffix = " (unsaved)"
	}
	return writef(out, "  %d/%d complete%s\n", done, total, suffix)
}

func parseChecklistFlags(args []string, defaultURL, defaultToken string) (checklistOptions, error) {
	fs := flag.NewFlagSet("checklist", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := checklistOptions{}
	fs.StringVar(&opts.JobID, "job", "", "Job ID (required)")
	fs.StringVar(&opts.BaseURL, "url", defaultURL, "API base URL")
	fs.StringVar(&opts.Token, "token", defaultToken, "API bearer token (defaults to $"+apiTokenEnv+")")
	fs.Func("toggle", "Checklist item text to toggle; repeatable", func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return errors.New("item text cannot be empty")
		}
		if !slices.Contains(opts.Toggle, s) {
			opts.Toggle = append(opts.Toggle, s)
		}
		return nil
	})
	fs.BoolVar(&opts.Interactive, "interactive", false, "Toggle items from stdin")
	fs.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "Per-request timeout")

	if err := fs.Parse(args); err != nil {
		return checklistOptions{}, err
	}

	opts.JobID = strings.TrimSpace(opts.JobID)
	if opts.JobID == "" {
		return checklistOptions{}, errors.New("--job is required")
	}
	if strings.TrimSpace(opts.Token) == "" {
		return checklistOptions{}, fmt.Errorf("--token or $%s is required", apiTokenEnv)
	}
	if opts.Timeout <= 0 {
		return checklistOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}
