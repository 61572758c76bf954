package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sensai/sensai-backend/internal/response"
)

// Domain errors returned by services. Callers match them with errors.Is.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrInternal           = errors.New("internal error")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrQuizLocked         = errors.New("quiz is locked for this student")
	ErrInvalidAccessCode  = errors.New("invalid access code")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// ErrorCode maps a service error onto the API error code reported to clients.
func ErrorCode(err error) response.ErrCode {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return response.ErrInvalidInput
	case errors.Is(err, ErrNotFound):
		return response.ErrNotFound
	case errors.Is(err, ErrForbidden):
		return response.ErrForbidden
	case errors.Is(err, ErrConflict):
		return response.ErrConflict
	case errors.Is(err, ErrQuizLocked):
		return response.ErrQuizLocked
	case errors.Is(err, ErrInvalidAccessCode):
		return response.ErrInvalidAccessCode
	case errors.Is(err, ErrInvalidCredentials):
		return response.ErrInvalidCredentials
	default:
		return response.ErrInternal
	}
}
