package store

import (
	"database/sql"
	"strings"

	"github.com/huangsam/testhub/schema"
)

// JoinList stores an array field in one column.
// A nil list is NULL, an empty list is "", anything else is joined with schema.ListDelimiter.
func JoinList(items []string) sql.NullString {
	if items == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strings.Join(items, schema.ListDelimiter), Valid: true}
}

// SplitList is the exact inverse of JoinList.
func SplitList(v sql.NullString) []string {
	if !v.Valid {
		return nil
	}
	if v.String == "" {
		return []string{}
	}
	return strings.Split(v.String, schema.ListDelimiter)
}

// nullString maps "" to NULL for optional text columns.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
