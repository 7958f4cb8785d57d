package litdb

import (
	"context"
	"errors"
)

var (
	errUnrecognizedStatementType = errors.New("unrecognised statement type")
)

type StatementKind int

const (
	Insert StatementKind = iota + 1
	Select
)

func (s StatementKind) String() string {
	switch s {
	case Insert:
		return "INSERT"
	case Select:
		return "SELECT"
	default:
		return "Unknown"
	}
}

// Statement is a parsed request, Row is only used for INSERT.
type Statement struct {
	Kind StatementKind
	Row  Row
}

func (s Statement) Validate() error {
	switch s.Kind {
	case Insert:
		return s.Row.Validate()
	case Select:
		return nil
	}
	return errUnrecognizedStatementType
}

type Iterator func(ctx context.Context) (Row, error)

type StatementResult struct {
	Rows         Iterator
	RowsAffected int
}
