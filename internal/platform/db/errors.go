package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"hrms/internal/apperr"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// TranslateError maps storage errors onto apperr kinds. entity names the
// record for not-found messages.
func TranslateError(err error, entity string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(entity)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, "duplicate", entity+" already exists", err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return apperr.Wrap(apperr.KindConflict, "reference_conflict", entity+" references missing or dependent data", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "duplicate", entity+" already exists", err)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.KindConflict, "reference_conflict", entity+" references missing or dependent data", err)
		}
	}
	return err
}
