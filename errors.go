package goathena

import (
	"errors"
	"fmt"
)

// ErrorKind classifies driver errors following the DB-API taxonomy.
type ErrorKind int

const (
	// KindProgramming indicates caller misuse local to the client, such as
	// fetching before executing or setting an invalid arraysize.
	KindProgramming ErrorKind = iota
	// KindDatabase indicates the service rejected a submission.
	KindDatabase
	// KindOperational indicates a failure while polling, fetching or
	// cancelling, or a terminal FAILED/CANCELLED execution.
	KindOperational
	// KindData indicates a structurally malformed service response.
	KindData
)

func (k ErrorKind) String() string {
	switch k {
	case KindProgramming:
		return "ProgrammingError"
	case KindDatabase:
		return "DatabaseError"
	case KindOperational:
		return "OperationalError"
	case KindData:
		return "DataError"
	}
	return "UnknownError"
}

// Error is the error type returned by every cursor-level operation.
type Error struct {
	Kind    ErrorKind
	QueryID string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.QueryID, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

func programmingError(message string) *Error {
	return &Error{Kind: KindProgramming, Message: message}
}

func databaseError(message string, cause error) *Error {
	return &Error{Kind: KindDatabase, Message: message, cause: cause}
}

func operationalError(message string, cause error) *Error {
	return &Error{Kind: KindOperational, Message: message, cause: cause}
}

func dataError(message string) *Error {
	return &Error{Kind: KindData, Message: message}
}

// errorKindIs reports whether err is a driver Error of the given kind.
func errorKindIs(err error, kind ErrorKind) bool {
	var ae *Error
	return errors.As(err, &ae) && ae.Kind == kind
}

// IsProgrammingError reports whether err is a ProgrammingError.
func IsProgrammingError(err error) bool { return errorKindIs(err, KindProgramming) }

// IsDatabaseError reports whether err is a DatabaseError.
func IsDatabaseError(err error) bool { return errorKindIs(err, KindDatabase) }

// IsOperationalError reports whether err is an OperationalError.
func IsOperationalError(err error) bool { return errorKindIs(err, KindOperational) }

// IsDataError reports whether err is a DataError.
func IsDataError(err error) bool { return errorKindIs(err, KindData) }

var (
	// preformatted errors

	// errNoQueryID is returned when an operation requires a current query
	// execution and none is assigned.
	errNoQueryID = programmingError("QueryExecutionId is none or empty")
	// errNoResultSet is returned when fetch is called before execute.
	errNoResultSet = programmingError("no result set")
	// errClosedResultSet is returned for operations on a closed result set.
	errClosedResultSet = programmingError("result set is closed")
	// errNotSucceeded is returned when a result set is requested for an
	// execution that is not in the SUCCEEDED state.
	errNotSucceeded = programmingError("QueryExecutionState is not SUCCEEDED")
)
