package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"table-session-bot/logging"
)

func TestClassifyStoreError(t *testing.T) {
	log := logging.Component(logging.Discard(), "test")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"domain error passes through", fmt.Errorf("table 3: %w", ErrTableFull), ErrTableFull},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"deadline", context.DeadlineExceeded, ErrTransientStore},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), ErrTransientStore},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, ErrTransientStore},
		{"pg lock timeout", &pgconn.PgError{Code: "55P03"}, ErrTransientStore},
		{"translated duplicate", gorm.ErrDuplicatedKey, ErrAlreadyExists},
		{"pg duplicate", &pgconn.PgError{Code: "23505"}, ErrAlreadyExists},
		{"sqlite duplicate", errors.New("UNIQUE constraint failed: users.external_id"), ErrAlreadyExists},
		{"translated fk", gorm.ErrForeignKeyViolated, ErrReferenceNotFound},
		{"pg fk", &pgconn.PgError{Code: "23503"}, ErrReferenceNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyStoreError(log, "op", tc.err), tc.want)
		})
	}
}

func TestClassifyStoreErrorKeepsUnknownCause(t *testing.T) {
	log := logging.Component(logging.Discard(), "test")
	cause := errors.New("disk on fire")

	err := classifyStoreError(log, "create table", cause)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "create table: disk on fire")
	assert.NoError(t, classifyStoreError(log, "noop", nil))
}

func TestValidationHierarchy(t *testing.T) {
	assert.ErrorIs(t, ErrInvalidTableData, ErrValidation)
	assert.ErrorIs(t, ErrCapacityBelowOccupancy, ErrValidation)
	assert.NotErrorIs(t, ErrTableFull, ErrValidation)
}
