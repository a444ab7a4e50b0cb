package dynamo

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrConflict is returned when a conditional put is rejected because the
	// stored item no longer matches the values it was read with
	ErrConflict = errors.New("concurrent modification detected")
)

// ScanError wraps any failure while reading the table
type ScanError struct {
	Table string
	Err   error
}

// Error implements the error interface
func (e *ScanError) Error() string {
	return fmt.Sprintf("error scanning %s: %v", e.Table, e.Err)
}

// Unwrap returns the remote cause
func (e *ScanError) Unwrap() error {
	return e.Err
}

// ConvertError maps DynamoDB errors onto package errors. A failed condition
// check becomes ErrConflict; everything else is returned unchanged.
func ConvertError(err error) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %s", ErrConflict, ccf.ErrorMessage())
	}

	return err
}

// IsConflict returns true if the error is ErrConflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsScanError returns true if the error came from reading the table
func IsScanError(err error) bool {
	var scanErr *ScanError
	return errors.As(err, &scanErr)
}
