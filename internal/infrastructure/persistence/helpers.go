package persistence

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// parseUUID converts a stored string ID back to uuid.UUID. Stored IDs
// are written from uuid.UUID values, so a parse failure means corrupt
// data; the zero UUID is returned rather than panicking.
func parseUUID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

// isUniqueViolation reports whether the error is a unique constraint
// violation. GORM translates these for postgres; the string checks
// cover sqlite, which the tests run on.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// lockForUpdate applies a SELECT ... FOR UPDATE clause on dialects that
// support it. SQLite has no row locks; its single-writer transactions
// already serialize the check-and-increment, so the clause is skipped
// there.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}
