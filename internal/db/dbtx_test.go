package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_slot_uniq"}

	assert.Equal(t, "appointments_active_slot_uniq", UniqueViolation(pgErr))
	assert.Equal(t, "appointments_active_slot_uniq", UniqueViolation(fmt.Errorf("insert: %w", pgErr)))
	assert.Empty(t, UniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.Empty(t, UniqueViolation(errors.New("boom")))
	assert.Empty(t, UniqueViolation(nil))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, len(entries), 2)
}
