// Package errors derives low-cardinality error classes for metric tags and log fields.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "github.com/target/opscrm-api/internal/errors"
)

// Classify returns a tag-safe class for err. Application errors classify by code
// ("app_conflict"), Postgres errors by SQLSTATE ("pg_23505") and context errors by kind.
// Anything else falls back to the innermost concrete type, e.g. "net_dnserror".
func Classify(err error) string {
	if err == nil {
		return ""
	}

	switch {
	case goerrors.Is(err, context.Canceled):
		return "canceled"
	case goerrors.Is(err, context.DeadlineExceeded):
		return "deadline_exceeded"
	}

	if code := apperrors.GetCode(err); code != "" {
		return "app_" + string(code)
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) && pgErr.Code != "" {
		return "pg_" + pgErr.Code
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.String() == "" {
		return "unknown"
	}
	return strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
}
