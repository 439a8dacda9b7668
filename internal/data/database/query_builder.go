// Package database builds parameterized list queries with sanitized identifiers.
package database

import (
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ConditionType is the comparison operator of a Condition.
type ConditionType string

const (
	Equal              ConditionType = "="
	NotEqual           ConditionType = "!="
	GreaterThan        ConditionType = ">"
	LessThan           ConditionType = "<"
	LessThanOrEqual    ConditionType = "<="
	GreaterThanOrEqual ConditionType = ">="
	Like               ConditionType = "LIKE"
	ILike              ConditionType = "ILIKE"
	In                 ConditionType = "IN"
	Any                ConditionType = "ANY"
	IsNull             ConditionType = "IS NULL"
	IsNotNull          ConditionType = "IS NOT NULL"
	Custom             ConditionType = "CUSTOM"

	unset = -1
)

//nolint:gochecknoglobals // compiled once
var rePlaceholder = regexp.MustCompile(`\$(\d+)`)

// Condition is one AND-ed predicate of a list query.
type Condition struct {
	Field    string
	Type     ConditionType
	Value    any
	rawQuery string
}

// WhereCond builds a predicate on a single column. Use WhereRawCond for raw SQL.
func WhereCond(field string, condType ConditionType, value any) Condition {
	if condType == Custom {
		//nolint:forbidigo // panic prevents misuse; custom conditions must provide raw SQL via WhereRawCond.
		panic("Use WhereRawCond for Custom type")
	}
	return Condition{Field: field, Type: condType, Value: value}
}

// WhereRawCond builds a raw SQL predicate. Placeholders are numbered from $1 relative to params
// and renumbered into the final query. The SQL itself is not sanitized.
func WhereRawCond(rawQuery string, params ...any) Condition {
	return Condition{Type: Custom, rawQuery: rawQuery, Value: params}
}

// ListQueryOptions describes a SELECT over one table.
type ListQueryOptions struct {
	Table      string
	Columns    []string
	CountOnly  bool
	Conditions []Condition
	OrderBy    []OrderTerm
	Limit      int
	Offset     int
}

// OrderTerm is one ORDER BY column.
type OrderTerm struct {
	Column string
	Dir    string
}

// ListQueryOption mutates ListQueryOptions.
type ListQueryOption func(*ListQueryOptions)

// NewListQueryOptions returns options for table with opts applied.
func NewListQueryOptions(table string, opts ...ListQueryOption) *ListQueryOptions {
	o := &ListQueryOptions{Table: table, Limit: unset, Offset: unset}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithColumns sets the columns to select.
func WithColumns(cols ...string) ListQueryOption {
	return func(o *ListQueryOptions) { o.Columns = cols }
}

// WithCondition adds a single condition.
func WithCondition(cond Condition) ListQueryOption {
	return func(o *ListQueryOptions) { o.Conditions = append(o.Conditions, cond) }
}

// WithOrderBy appends an ordering column. Call it again for tie-breakers.
func WithOrderBy(column, direction string) ListQueryOption {
	return func(o *ListQueryOptions) {
		o.OrderBy = append(o.OrderBy, OrderTerm{Column: column, Dir: direction})
	}
}

// WithLimit sets the limit. Accepts 0.
func WithLimit(limit int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if limit >= 0 {
			o.Limit = limit
		}
	}
}

// WithOffset sets the offset. Accepts 0.
func WithOffset(offset int) ListQueryOption {
	return func(o *ListQueryOptions) {
		if offset >= 0 {
			o.Offset = offset
		}
	}
}

// WithCountOnly turns the query into SELECT COUNT(*) and drops ordering and paging.
func WithCountOnly() ListQueryOption {
	return func(o *ListQueryOptions) { o.CountOnly = true }
}

// quoteIdent quotes identifiers, including qualified ones like "jobs.status".
func quoteIdent(ident string) string {
	return pgx.Identifier(strings.Split(ident, ".")).Sanitize()
}

type queryBuilder struct {
	sb   strings.Builder
	args []any
}

func (b *queryBuilder) bind(v any) string {
	b.args = append(b.args, v)
	return "$" + strconv.Itoa(len(b.args))
}

// BuildListQuery renders options into SQL and its positional arguments.
//
//	opts := NewListQueryOptions("jobs",
//		WithColumns("id", "title"),
//		WithCondition(WhereCond("status", Equal, "NEW")),
//		WithOrderBy("created_at", "desc"),
//		WithLimit(50),
//	)
//	query, args := BuildListQuery(opts)
func BuildListQuery(options *ListQueryOptions) (string, []any) {
	if options == nil {
		return "", nil
	}
	b := &queryBuilder{}

	switch {
	case options.CountOnly:
		b.sb.WriteString("SELECT COUNT(*) ")
	case len(options.Columns) == 0:
		b.sb.WriteString("SELECT * ")
	default:
		cols := make([]string, len(options.Columns))
		for i, c := range options.Columns {
			cols[i] = quoteIdent(c)
		}
		b.sb.WriteString("SELECT " + strings.Join(cols, ", ") + " ")
	}
	b.sb.WriteString("FROM " + quoteIdent(options.Table))

	preds := make([]string, 0, len(options.Conditions))
	for _, c := range options.Conditions {
		if p := b.predicate(c); p != "" {
			preds = append(preds, p)
		}
	}
	if len(preds) > 0 {
		b.sb.WriteString(" WHERE " + strings.Join(preds, " AND "))
	}

	if options.CountOnly {
		return b.sb.String(), b.args
	}

	if len(options.OrderBy) > 0 {
		terms := make([]string, 0, len(options.OrderBy))
		for _, t := range options.OrderBy {
			term := quoteIdent(t.Column)
			if d := strings.ToUpper(strings.TrimSpace(t.Dir)); d == "ASC" || d == "DESC" {
				term += " " + d
			}
			terms = append(terms, term)
		}
		b.sb.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if options.Limit != unset {
		b.sb.WriteString(" LIMIT " + b.bind(options.Limit))
	}
	if options.Offset != unset {
		b.sb.WriteString(" OFFSET " + b.bind(options.Offset))
	}
	return b.sb.String(), b.args
}

func (b *queryBuilder) predicate(c Condition) string {
	if c.Type == Custom {
		return b.raw(c)
	}
	if c.Field == "" {
		return ""
	}
	field := quoteIdent(c.Field)

	switch c.Type {
	case IsNull, IsNotNull:
		return field + " " + string(c.Type)
	case In, Any:
		rv := reflect.ValueOf(c.Value)
		if rv.Kind() != reflect.Slice || rv.Len() == 0 {
			return ""
		}
		ph := make([]string, rv.Len())
		for i := range rv.Len() {
			ph[i] = b.bind(rv.Index(i).Interface())
		}
		if c.Type == In {
			return field + " IN (" + strings.Join(ph, ", ") + ")"
		}
		return field + " = ANY (ARRAY[" + strings.Join(ph, ", ") + "])"
	case Equal, NotEqual, GreaterThan, LessThan, LessThanOrEqual, GreaterThanOrEqual, Like, ILike:
		return field + " " + string(c.Type) + " " + b.bind(c.Value)
	case Custom:
	}
	return ""
}

// raw renumbers $n placeholders in a raw predicate onto the shared argument list.
// Repeated placeholders bind once; out-of-range ones are left untouched.
func (b *queryBuilder) raw(c Condition) string {
	if c.rawQuery == "" {
		return ""
	}
	params, _ := c.Value.([]any)
	bound := make(map[int]string, len(params))
	return rePlaceholder.ReplaceAllStringFunc(c.rawQuery, func(m string) string {
		n, err := strconv.Atoi(m[1:])
		if err != nil || n < 1 || n > len(params) {
			return m
		}
		if ph, ok := bound[n]; ok {
			return ph
		}
		ph := b.bind(params[n-1])
		bound[n] = ph
		return ph
	})
}
