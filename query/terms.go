package query

import (
	"fmt"
	"strings"

	"github.com/samson-dev/samson-db/database"
)

// Builder accumulates bind arguments while terms render SQL.
type Builder struct {
	dialect database.Dialect
	args    []any
}

func NewBuilder(d database.Dialect) *Builder {
	return &Builder{dialect: d}
}

// Bind records v and returns its placeholder.
func (b *Builder) Bind(v any) string {
	b.args = append(b.args, v)
	return b.dialect.Placeholder(len(b.args))
}

func (b *Builder) Column(name string) string {
	return b.dialect.Quote(name)
}

func (b *Builder) Args() []any {
	return b.args
}

// Where renders terms joined with AND, or "" when there are none.
func (b *Builder) Where(terms []Term) string {
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, 0, len(terms))
	for _, t := range terms {
		parts = append(parts, "("+t.SQL(b)+")")
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

// Term is one filter condition of a search.
type Term interface {
	SQL(b *Builder) string
}

func lower(s string, fold bool) string {
	if fold {
		return "LOWER(" + s + ")"
	}
	return s
}

// ExactMatch matches Column = Value.
type ExactMatch struct {
	Column     string
	Value      any
	IgnoreCase bool
}

func (t ExactMatch) SQL(b *Builder) string {
	_, isString := t.Value.(string)
	fold := t.IgnoreCase && isString
	return lower(b.Column(t.Column), fold) + " = " + lower(b.Bind(t.Value), fold)
}

// LikeMode selects where the wildcard goes.
type LikeMode int

const (
	Contains LikeMode = iota
	StartsWith
	EndsWith
)

// Like is a pattern match. Matching ignores case unless CaseSensitive is set.
type Like struct {
	Column        string
	Value         string
	Mode          LikeMode
	CaseSensitive bool
}

func (t Like) pattern() string {
	switch t.Mode {
	case StartsWith:
		return t.Value + "%"
	case EndsWith:
		return "%" + t.Value
	default:
		return "%" + t.Value + "%"
	}
}

func (t Like) SQL(b *Builder) string {
	return fmt.Sprintf("%s %s %s", b.Column(t.Column), b.dialect.Like(!t.CaseSensitive), b.Bind(t.pattern()))
}

// InList matches any of Values. An empty list matches nothing.
type InList struct {
	Column     string
	Values     []any
	IgnoreCase bool
}

func (t InList) SQL(b *Builder) string {
	col := lower(b.Column(t.Column), t.IgnoreCase)
	if len(t.Values) == 0 {
		return col + " IN (NULL)"
	}
	placeholders := make([]string, 0, len(t.Values))
	for _, v := range t.Values {
		placeholders = append(placeholders, lower(b.Bind(v), t.IgnoreCase))
	}
	return col + " IN (" + strings.Join(placeholders, ", ") + ")"
}

// Range bounds Column inclusively. Either bound may be nil; with neither the
// term matches every row.
type Range struct {
	Column     string
	Min        any
	Max        any
	IgnoreCase bool
}

func (t Range) SQL(b *Builder) string {
	col := lower(b.Column(t.Column), t.IgnoreCase)
	switch {
	case t.Min == nil && t.Max == nil:
		return col + " = " + col + " OR " + col + " IS NULL"
	case t.Max == nil:
		return col + " >= " + lower(b.Bind(t.Min), t.IgnoreCase)
	case t.Min == nil:
		return col + " <= " + lower(b.Bind(t.Max), t.IgnoreCase)
	default:
		return col + " >= " + lower(b.Bind(t.Min), t.IgnoreCase) + " AND " + col + " <= " + lower(b.Bind(t.Max), t.IgnoreCase)
	}
}
