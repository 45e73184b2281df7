package pgutils

import "strings"

// CodeUniqueViolation is SQLSTATE class 23 "unique_violation".
const CodeUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. Matching is on the error text: the pgx error may arrive
// wrapped by bun or database/sql, which strips the typed pgconn error.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), CodeUniqueViolation)
}
