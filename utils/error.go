package utils

import (
	"errors"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

var (
	ErrorRecordNotFound = errors.New("record not found")

	// ErrorUnauthorized covers both wrong-role and cross-owner access attempts.
	ErrorUnauthorized = errors.New("not allowed")
)

// RetryableError marks a persistence failure the caller may retry
// (store unavailable, conditional write lost). Validation and authorization
// failures are never wrapped in it.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }

func (e *RetryableError) Unwrap() error { return e.Err }

func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// IsDuplicateKeyErr reports whether err is a MySQL duplicate-entry error
// (1062), i.e. a unique constraint caught the write.
func IsDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
