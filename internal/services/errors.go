package services

import (
	"errors"
	"net/http"

	"github.com/lib/pq"
)

// Transactional outcomes surfaced to callers. None of these are retried inside
// the services; ErrChallengeIssued and ErrWriteConflict are designed for the
// caller to resubmit the whole request.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOfferNotOpen      = errors.New("offer is no longer open")
	ErrSelfTrade         = errors.New("cannot accept your own offer")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidState      = errors.New("invalid state")
	ErrChallengeIssued   = errors.New("verification code required")
	ErrInvalidOTP        = errors.New("invalid or expired verification code")
	ErrRateUnavailable   = errors.New("rate source unavailable")
	ErrWriteConflict     = errors.New("write conflict, retry the operation")
)

// Postgres error codes that mean the transaction lost a lock or serialization
// race and is safe to retry.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

// classifyDBError folds retryable lock/serialization failures into
// ErrWriteConflict and passes everything else through.
func classifyDBError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pqSerializationFailure, pqDeadlockDetected, pqLockNotAvailable:
			return ErrWriteConflict
		}
	}
	return err
}

// statusForError maps service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrChallengeIssued):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidOTP):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInsufficientFunds),
		errors.Is(err, ErrOfferNotOpen),
		errors.Is(err, ErrSelfTrade),
		errors.Is(err, ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrWriteConflict):
		return http.StatusConflict
	case errors.Is(err, ErrRateUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
