package errors

import (
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/mattn/go-sqlite3"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
	Stack   string      `json:"stack,omitempty"`
}

const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeRateLimit    = "RATE_LIMIT"
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeDatabase     = "DATABASE_ERROR"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// AppError carries a taxonomy code and HTTP status across layers so handlers
// never render raw driver errors.
type AppError struct {
	Status  int
	Code    string
	Message string
	Details interface{}
	Err     error
	Stack   string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code, message string) *AppError {
	return &AppError{Status: status, Code: code, Message: message}
}

func Validation(message string) *AppError {
	return New(http.StatusBadRequest, ErrCodeValidation, message)
}

func NotFound(message string) *AppError {
	return New(http.StatusNotFound, ErrCodeNotFound, message)
}

func Forbidden(message string, details interface{}) *AppError {
	e := New(http.StatusForbidden, ErrCodeForbidden, message)
	e.Details = details
	return e
}

// FromStore maps a persistence error into the taxonomy. Nil stays nil and
// errors that already carry a code pass through untouched.
func FromStore(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return &AppError{Status: http.StatusNotFound, Code: ErrCodeNotFound, Message: "Resource not found", Err: err}
	}

	var sqliteErr sqlite3.Error
	if stderrors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		return &AppError{Status: http.StatusBadRequest, Code: ErrCodeValidation, Message: "Constraint violation", Err: err}
	}

	return &AppError{
		Status:  http.StatusInternalServerError,
		Code:    ErrCodeDatabase,
		Message: "Database error",
		Err:     err,
		Stack:   string(debug.Stack()),
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	writeJSON(w, status, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Write renders any error using the taxonomy. Stack traces are only emitted
// when debug is set.
func Write(w http.ResponseWriter, err error, debugMode bool) {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		appErr = &AppError{
			Status:  http.StatusInternalServerError,
			Code:    ErrCodeInternal,
			Message: "Internal server error",
			Err:     err,
			Stack:   string(debug.Stack()),
		}
	}

	resp := ErrorResponse{
		Error:   appErr.Message,
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	}
	if debugMode {
		resp.Stack = appErr.Stack
	}
	writeJSON(w, appErr.Status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
