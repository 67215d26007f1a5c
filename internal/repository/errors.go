package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"io"
	"net"

	"github.com/lib/pq"
)

// StoreError wraps a failed store operation and classifies it for retry
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether retrying the operation may succeed
func (e *StoreError) IsTransient() bool {
	return IsTransientDBError(e.Err)
}

// SQLSTATE classes and codes worth retrying
const (
	classConnectionException  pq.ErrorClass = "08"
	classInsufficientResource pq.ErrorClass = "53"
	codeSerializationFailure  pq.ErrorCode  = "40001"
	codeDeadlockDetected      pq.ErrorCode  = "40P01"
	codeLockNotAvailable      pq.ErrorCode  = "55P03"
	codeCannotConnectNow      pq.ErrorCode  = "57P03"
	codeAdminShutdown         pq.ErrorCode  = "57P01"
)

// IsTransientDBError classifies driver, network and PostgreSQL errors
func IsTransientDBError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable, codeCannotConnectNow, codeAdminShutdown:
			return true
		}
		switch pqErr.Code.Class() {
		case classConnectionException, classInsufficientResource:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
