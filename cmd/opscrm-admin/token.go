package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/target/opscrm-api/config"
	"github.com/target/opscrm-api/internal/bootstrap"
	domainauth "github.com/target/opscrm-api/internal/domain/auth"
	"github.com/target/opscrm-api/internal/service"
)

type issueTokenOptions struct {
	UserID    string
	Role      domainauth.Role
	FirstName string
	LastName  string
	Email     string
	TTL       time.Duration
}

func runIssueToken(cmdCtx *commandContext, args []string) error {
	opts, err := parseIssueTokenFlags(args, cmdCtx.Config.Auth.APIToken.TTL)
	if err != nil {
		return err
	}
	return issueToken(os.Stdout, cmdCtx.Config.Auth.APIToken, opts)
}

func issueToken(out io.Writer, cfg config.APITokenConfig, opts issueTokenOptions) error {
	codec, err := bootstrap.BuildTokenCodec(cfg)
	if err != nil {
		return fmt.Errorf("token codec: %w", err)
	}
	if codec == nil {
		return fmt.Errorf("%w: set AUTH_API_TOKEN_SECRET", service.ErrTokensDisabled)
	}
	auth := service.NewAuthService(service.AuthServiceOptions{Tokens: codec})

	token, exp, err := auth.IssueToken(domainauth.Session{
		UserID:    opts.UserID,
		FirstName: opts.FirstName,
		LastName:  opts.LastName,
		Email:     opts.Email,
		Role:      opts.Role,
	}, opts.TTL)
	if err != nil {
		return fmt.Errorf("issue token: %w", err)
	}

	if err := writeln(out, token); err != nil {
		return err
	}
	return writef(os.Stderr, "expires %s (%s role)\n", exp.Format(time.RFC3339), opts.Role)
}

func parseIssueTokenFlags(args []string, defaultTTL time.Duration) (issueTokenOptions, error) {
	fs := flag.NewFlagSet("issue-token", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var (
		opts issueTokenOptions
		role string
	)
	fs.StringVar(&opts.UserID, "user-id", "", "Staff user ID the token acts as (required)")
	fs.StringVar(&role, "role", string(domainauth.RoleOperations), "Role carried by the token")
	fs.StringVar(&opts.FirstName, "first-name", "", "First name claim")
	fs.StringVar(&opts.LastName, "last-name", "", "Last name claim")
	fs.StringVar(&opts.Email, "email", "", "Email claim")
	fs.DurationVar(&opts.TTL, "ttl", defaultTTL, "Token lifetime")

	if err := fs.Parse(args); err != nil {
		return issueTokenOptions{}, err
	}

	opts.UserID = strings.TrimSpace(opts.UserID)
	if opts.UserID == "" {
		return issueTokenOptions{}, errors.New("--user-id is required")
	}
	r, ok := domainauth.ParseRole(role)
	if !ok || r == domainauth.RoleGuest {
		return issueTokenOptions{}, fmt.Errorf("--role %q is not a staff role", role)
	}
	opts.Role = r
	if opts.TTL <= 0 {
		return issueTokenOptions{}, errors.New("--ttl must be greater than zero")
	}
	return opts, nil
}
