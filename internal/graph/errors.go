package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Error kinds. Match them with errors.Is.
var (
	ErrUnavailable = errors.New("graph store unavailable")
	ErrSyntax      = errors.New("graph statement invalid")
	ErrConstraint  = errors.New("graph constraint violated")
	ErrQuery       = errors.New("graph query failed")

	// ErrCanceled marks a call abandoned by its caller. It says nothing
	// about the health of the database.
	ErrCanceled = errors.New("graph call canceled")
)

const constraintViolationCode = "Neo.ClientError.Schema.ConstraintValidationFailed"

// Error carries the kind of a store failure next to the driver error.
type Error struct {
	Kind      error
	Statement string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func classify(stmt string, err error) error {
	var already *Error
	if errors.As(err, &already) {
		return err
	}

	kind := ErrQuery

	var (
		neoErr   *neo4j.Neo4jError
		connErr  *neo4j.ConnectivityError
		limitErr *neo4j.TransactionExecutionLimit
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = ErrCanceled
	case errors.As(err, &connErr), errors.As(err, &limitErr):
		kind = ErrUnavailable
	case errors.As(err, &neoErr):
		switch {
		case neoErr.Code == constraintViolationCode:
			kind = ErrConstraint
		case strings.HasPrefix(neoErr.Code, "Neo.ClientError.Statement."):
			kind = ErrSyntax
		case strings.HasPrefix(neoErr.Code, "Neo.TransientError."):
			kind = ErrUnavailable
		}
	}

	return &Error{Kind: kind, Statement: stmt, Err: err}
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrSyntax):
		return "syntax"
	case errors.Is(err, ErrConstraint):
		return "constraint"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	default:
		return "query"
	}
}
