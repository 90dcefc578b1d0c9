package middb

import (
	"errors"
	"fmt"

	"github.com/hupe1980/middb/annindex"
)

// ErrDimensionMismatch indicates a vector's length does not match the
// table's configured embedding dimension.
//
// The original underlying error, if any, can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrBadRequest wraps a caller mistake at the API boundary, such as an
// invalid table name, an empty record ID, or a malformed request body.
// Transports (httpapi) translate it into a 4xx response rather than a
// 500.
type ErrBadRequest struct {
	Reason string
}

func (e *ErrBadRequest) Error() string { return "middb: bad request: " + e.Reason }

// translateError normalizes errors surfacing from the ANN index into the
// package's own error types so callers only need to know about this
// package's vocabulary.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var dm *annindex.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	if errors.Is(err, annindex.ErrEmptyVector) {
		return fmt.Errorf("%w: %w", &ErrBadRequest{Reason: "embedding must not be empty"}, err)
	}

	return err
}
