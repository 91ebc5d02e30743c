package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Domain errors. Every error returned by a service wraps one of these, so
// callers can branch with errors.Is and turn them into a user-facing message.
var (
	ErrValidation             = errors.New("validation error")
	ErrInvalidTableData       = fmt.Errorf("%w: invalid table data", ErrValidation)
	ErrCapacityBelowOccupancy = fmt.Errorf("%w: max players below current occupancy", ErrValidation)
	ErrAlreadyRegistered      = errors.New("user already registered to table")
	ErrTableFull              = errors.New("table is full")
	ErrReferenceNotFound      = errors.New("referenced record not found")
	ErrNotFound               = errors.New("record not found")
	ErrAlreadyExists          = errors.New("record already exists")
	ErrTransientStore         = errors.New("store temporarily unavailable")
	ErrNothingToPublish       = errors.New("no active tables to publish")
	ErrStorageDisabled        = errors.New("object storage not configured")
)

// postgres SQLSTATE codes
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
)

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable, pgQueryCanceled:
			return true
		}
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// classifyStoreError maps a raw store error onto the domain errors. Domain
// errors pass through untouched. Unclassified errors are logged at error level
// and returned wrapped with the operation name.
func classifyStoreError(log *logrus.Entry, op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrValidation, ErrAlreadyRegistered, ErrTableFull, ErrReferenceNotFound,
		ErrNotFound, ErrAlreadyExists, ErrTransientStore,
	} {
		if errors.Is(err, known) {
			return err
		}
	}

	entry := log.WithField("op", op).WithError(err)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case isTransient(err):
		entry.Warn("store busy or timed out")
		return fmt.Errorf("%s: %w: %v", op, ErrTransientStore, err)
	case isUniqueViolation(err):
		entry.Info("unique constraint violated")
		return fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	case isForeignKeyViolation(err):
		entry.Info("foreign key violated")
		return fmt.Errorf("%s: %w", op, ErrReferenceNotFound)
	}
	entry.Error("unexpected store error")
	return fmt.Errorf("%s: %w", op, err)
}
