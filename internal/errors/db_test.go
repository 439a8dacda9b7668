package errors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapDBError_NilError(t *testing.T) {
	if err := MapDBError(nil); err != nil {
		t.Errorf("MapDBError(nil) = %v, want nil", err)
	}
}

func TestMapDBError_ContextErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
	}{
		{name: "deadline exceeded", err: context.DeadlineExceeded, wantCode: ErrCodeTimeout},
		{name: "canceled", err: context.Canceled, wantCode: ErrCodeCanceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.err)
			if !IsAppError(err, tt.wantCode) {
				t.Errorf("MapDBError() code = %v, want %v", GetCode(err), tt.wantCode)
			}
		})
	}
}

func TestMapDBError_NoRows(t *testing.T) {
	err := MapDBError(pgx.ErrNoRows)
	if !IsNotFound(err) {
		t.Errorf("MapDBError(pgx.ErrNoRows) should be NotFound, got %v", GetCode(err))
	}
}

func TestMapDBError_PassesThroughAppError(t *testing.T) {
	in := Conflict("already exists")
	if got := MapDBError(in); got != error(in) {
		t.Errorf("MapDBError() = %v, want the same AppError", got)
	}
}

func TestMapDBError_UniqueViolation(t *testing.T) {
	tests := []struct {
		name        string
		pgErr       *pgconn.PgError
		wantField   string
		wantMessage string
	}{
		{
			name: "column name metadata",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "users_email_key",
				ColumnName:     "email",
			},
			wantField: "email",
		},
		{
			name: "template name and service type from detail",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				TableName:      "checklist_templates",
				ConstraintName: "checklist_templates_name_service_type_key",
				Detail:         `Key (name, service_type)=(Deep clean, cleaning) already exists.`,
			},
			wantField:   "name, service_type",
			wantMessage: "service type",
		},
		{
			name: "inferred from constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "customers_email_key",
			},
			wantField: "email",
		},
		{
			name: "ambiguous constraint",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.UniqueViolation,
				ConstraintName: "table_field1_field2_key",
			},
			wantField: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsConflict(err) {
				t.Errorf("MapDBError() should be Conflict, got %v", GetCode(err))
			}
			if field := GetField(err); field != tt.wantField {
				t.Errorf("MapDBError() field = %v, want %v", field, tt.wantField)
			}
			if tt.wantMessage != "" && !strings.Contains(err.Error(), tt.wantMessage) {
				t.Errorf("MapDBError() message = %q, want to contain %q", err.Error(), tt.wantMessage)
			}
		})
	}
}

func TestMapDBError_ForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name         string
		pgErr        *pgconn.PgError
		wantContains string
	}{
		{
			name: "parent still referenced",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (id)=(abc) is still referenced from table "jobs".`,
			},
			wantContains: "in use by Job",
		},
		{
			name: "missing parent",
			pgErr: &pgconn.PgError{
				Code:   pgerrcode.ForeignKeyViolation,
				Detail: `Key (assigned_user_id)=(u-9) is not present in table "users".`,
			},
			wantContains: "referenced Staff Member does not exist",
		},
		{
			name: "table name fallback",
			pgErr: &pgconn.PgError{
				Code:      pgerrcode.ForeignKeyViolation,
				TableName: "customers",
			},
			wantContains: "Customer",
		},
		{
			name: "constraint name fallback",
			pgErr: &pgconn.PgError{
				Code:           pgerrcode.ForeignKeyViolation,
				ConstraintName: "jobs_checklist_template_id_fkey",
			},
			wantContains: "checklist template",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsForeignKey(err) {
				t.Fatalf("MapDBError() should be ForeignKey, got %v", GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.wantContains) {
				t.Errorf("MapDBError() = %q, want to contain %q", err.Error(), tt.wantContains)
			}
		})
	}
}

func TestMapDBError_NotNullAndCheck(t *testing.T) {
	tests := []struct {
		name      string
		pgErr     *pgconn.PgError
		wantField string
	}{
		{name: "not null with column", pgErr: &pgconn.PgError{Code: pgerrcode.NotNullViolation, ColumnName: "title"}, wantField: "title"},
		{name: "not null without column", pgErr: &pgconn.PgError{Code: pgerrcode.NotNullViolation}},
		{name: "check with column", pgErr: &pgconn.PgError{Code: pgerrcode.CheckViolation, ColumnName: "status"}, wantField: "status"},
		{name: "check without column", pgErr: &pgconn.PgError{Code: pgerrcode.CheckViolation}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := MapDBError(tt.pgErr)
			if !IsValidation(err) {
				t.Errorf("MapDBError() should be Validation, got %v", GetCode(err))
			}
			if field := GetField(err); field != tt.wantField {
				t.Errorf("MapDBError() field = %v, want %v", field, tt.wantField)
			}
		})
	}
}

func TestMapDBError_Transient(t *testing.T) {
	codes := []string{
		pgerrcode.SerializationFailure,
		pgerrcode.DeadlockDetected,
		pgerrcode.ConnectionFailure,
		pgerrcode.AdminShutdown,
		pgerrcode.TooManyConnections,
	}

	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			err := MapDBError(&pgconn.PgError{Code: code})
			if !IsTransient(err) {
				t.Errorf("MapDBError(%s) should be Transient, got %v", code, GetCode(err))
			}
		})
	}
}

func TestMapDBError_UnknownPgError(t *testing.T) {
	err := MapDBError(&pgconn.PgError{Code: pgerrcode.SyntaxError})
	if !IsInternal(err) {
		t.Errorf("MapDBError() should be Internal for unhandled codes, got %v", GetCode(err))
	}
}

func TestMapDBError_StandardError(t *testing.T) {
	stdErr := errors.New("standard error")
	if err := MapDBError(stdErr); !errors.Is(err, stdErr) {
		t.Errorf("MapDBError() should return original error for non-db errors, got %v", err)
	}
}

func TestInferFieldFromConstraint(t *testing.T) {
	tests := []struct {
		constraintName string
		want           string
	}{
		{constraintName: "users_email_key", want: "email"},
		{constraintName: "customers_name_unique", want: "name"},
		{constraintName: "table_field1_field2_key", want: ""},
		{constraintName: "table_lower_key", want: ""},
		{constraintName: "", want: ""},
		{constraintName: "table_key", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.constraintName, func(t *testing.T) {
			if got := inferFieldFromConstraint(tt.constraintName); got != tt.want {
				t.Errorf("inferFieldFromConstraint(%q) = %v, want %v", tt.constraintName, got, tt.want)
			}
		})
	}
}

func TestMapTableToDomain(t *testing.T) {
	tests := []struct {
		tableName string
		want      string
	}{
		{tableName: "jobs", want: "Job"},
		{tableName: "checklist_templates", want: "Checklist Template"},
		{tableName: "users", want: "Staff Member"},
		{tableName: "  CUSTOMERS ", want: "Customer"},
		{tableName: "service_areas", want: "Service Areas"},
	}

	for _, tt := range tests {
		t.Run(tt.tableName, func(t *testing.T) {
			if got := mapTableToDomain(tt.tableName); got != tt.want {
				t.Errorf("mapTableToDomain() = %v, want %v", got, tt.want)
			}
		})
	}
}

// IsAppError reports whether err carries code.
func IsAppError(err error, code ErrorCode) bool {
	return GetCode(err) == code
}
