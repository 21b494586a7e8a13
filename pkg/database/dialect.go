package database

import (
	"strconv"
	"strings"
)

type dialect int

const (
	dialectPostgres dialect = iota
	dialectSQLite
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// placeholder returns the bind marker for the n-th argument, 1-based
func (d dialect) placeholder(n int) string {
	if d == dialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// argList collects bind arguments and hands out matching placeholders
type argList struct {
	dialect dialect
	values  []any
}

func (a *argList) add(v any) string {
	a.values = append(a.values, v)
	return a.dialect.placeholder(len(a.values))
}

// limitOffset renders paging. A limit <= 0 means no limit.
func (d dialect) limitOffset(args *argList, skip, limit int) string {
	skip = max(skip, 0)
	switch {
	case limit > 0:
		return " LIMIT " + args.add(limit) + " OFFSET " + args.add(skip)
	case skip > 0 && d == dialectSQLite:
		return " LIMIT -1 OFFSET " + args.add(skip)
	case skip > 0:
		return " OFFSET " + args.add(skip)
	}
	return ""
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a case-insensitive LIKE pattern matching s literally
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
