package litdb

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNoMoreRows = errors.New("no more rows")
)

// Select returns an iterator over all rows in ascending key order.
// The iterator returns ErrNoMoreRows once the table is exhausted.
func (t *Table) Select(ctx context.Context) (Iterator, error) {
	aCursor, err := t.SeekFirst(ctx)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return func(ctx context.Context) (Row, error) {
		if err := ctx.Err(); err != nil {
			return Row{}, fmt.Errorf("context done: %w", err)
		}
		if aCursor.EndOfTable {
			return Row{}, ErrNoMoreRows
		}
		return aCursor.fetchRow(ctx)
	}, nil
}

// SelectAll collects every row of the table.
func (t *Table) SelectAll(ctx context.Context) ([]Row, error) {
	rows, err := t.Select(ctx)
	if err != nil {
		return nil, err
	}

	var result []Row
	for {
		aRow, err := rows(ctx)
		if err != nil {
			if errors.Is(err, ErrNoMoreRows) {
				return result, nil
			}
			return nil, err
		}
		result = append(result, aRow)
	}
}
