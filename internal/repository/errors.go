package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the services branch on.
const (
	pgLockNotAvailable = "55P03" // FOR UPDATE NOWAIT lost the race
	pgUniqueViolation  = "23505"
)

// IsLockUnavailable reports whether err is a failed NOWAIT row-lock acquire.
// GORM's postgres driver rides pgx, so the SQLSTATE arrives as *pgconn.PgError.
func IsLockUnavailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}

// IsUniqueViolation reports whether err is a unique-constraint insert failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// IsNotFound reports whether err is a missing-row lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
