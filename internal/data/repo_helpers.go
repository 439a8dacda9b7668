package data

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sortDirAsc   = "ASC"
	sortDirDesc  = "DESC"
	defaultLimit = 50
	maxLimit     = 500
)

// validUUID reports whether id parses as a UUID. Repos treat malformed ids as not found
// rather than letting Postgres reject the cast.
func validUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// clampPage applies the shared paging defaults.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	return limit, max(offset, 0)
}

// resolveSort picks a whitelisted column and direction, falling back to the defaults.
func resolveSort(allowed map[string]string, sort, dir, defCol, defDir string) (string, string) {
	col := defCol
	if c, ok := allowed[strings.ToLower(strings.TrimSpace(sort))]; ok {
		col = c
	}
	d := defDir
	switch strings.ToLower(strings.TrimSpace(dir)) {
	case "asc":
		d = sortDirAsc
	case "desc":
		d = sortDirDesc
	}
	return col, d
}

func likePattern(q *string) (string, bool) {
	if q == nil {
		return "", false
	}
	t := strings.TrimSpace(*q)
	if t == "" {
		return "", false
	}
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(t) + "%", true
}

// setClause accumulates "col = $n" fragments for partial updates.
type setClause struct {
	parts []string
	args  []any
}

func (s *setClause) add(col string, v any) {
	s.args = append(s.args, v)
	s.parts = append(s.parts, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setClause) addRaw(fragment string) {
	s.parts = append(s.parts, fragment)
}

// bind appends v and returns its placeholder.
func (s *setClause) bind(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *setClause) empty() bool { return len(s.parts) == 0 }

func (s *setClause) String() string { return strings.Join(s.parts, ", ") }

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}
