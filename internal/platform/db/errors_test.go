package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hrms/internal/apperr"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{name: "record not found", err: gorm.ErrRecordNotFound, want: apperr.KindNotFound},
		{name: "wrapped not found", err: fmt.Errorf("load: %w", gorm.ErrRecordNotFound), want: apperr.KindNotFound},
		{name: "duplicated key", err: gorm.ErrDuplicatedKey, want: apperr.KindConflict},
		{name: "foreign key", err: gorm.ErrForeignKeyViolated, want: apperr.KindConflict},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505"}, want: apperr.KindConflict},
		{name: "pg foreign key", err: &pgconn.PgError{Code: "23503"}, want: apperr.KindConflict},
		{name: "pg other", err: &pgconn.PgError{Code: "42P01"}, want: apperr.KindInternal},
		{name: "app error kept", err: apperr.InvalidState("x", "y"), want: apperr.KindInvalidState},
		{name: "plain error", err: errors.New("boom"), want: apperr.KindInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := TranslateError(tc.err, "employee")
			require.Equal(t, tc.want, apperr.KindOf(got))
		})
	}
	require.NoError(t, TranslateError(nil, "employee"))
	require.Equal(t, "employee not found", TranslateError(gorm.ErrRecordNotFound, "employee").Error())
}
