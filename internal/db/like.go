package db

import "strings"

// Like returns a backslash-escaped LIKE condition on column, to be bound
// to a pattern from Contains. SQLite's LIKE is case-insensitive for ASCII.
func Like(column string) string {
	return column + ` LIKE ? ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Contains returns a LIKE pattern matching s literally anywhere in a value.
func Contains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
