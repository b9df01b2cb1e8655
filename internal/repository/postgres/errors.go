package postgres

import (
	"strings"

	"github.com/lib/pq"

	"github.com/prabhakarpd7284/VocalBridgeOps/internal/domain"
)

// jsonArg adapts an optional domain.JSON field to a driver-safe query
// argument: a nil pointer becomes a real SQL NULL instead of a nil
// *domain.JSON, which would panic when the driver invokes its
// value-receiver Value() method.
func jsonArg(j *domain.JSON) any {
	if j == nil {
		return nil
	}
	return *j
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), generalizing the teacher's string-matched
// `err.Error() == "pq: duplicate key..."` check (internal/repository/
// postgres/user.go) into a pq.Error code comparison.
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "duplicate key value")
}
