package litdb

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

type Database struct {
	pager     DBPager
	table     *Table
	maxPages  uint32
	maxICells uint32
	logger    *zap.Logger
}

type DatabaseOption func(*Database)

// WithMaxPages limits the number of pages of the database file.
func WithMaxPages(maxPages uint32) DatabaseOption {
	return func(d *Database) {
		if maxPages > 0 {
			d.maxPages = maxPages
		}
	}
}

// WithMaxInternalCells limits the number of keys an internal node holds
// before it is split.
func WithMaxInternalCells(maxCells uint32) DatabaseOption {
	return func(d *Database) {
		if maxCells > 0 {
			d.maxICells = maxCells
		}
	}
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, logger *zap.Logger, path string, opts ...DatabaseOption) (*Database, error) {
	aDatabase := newDatabase(logger, opts...)

	aPager, err := OpenPager(path, aDatabase.maxPages)
	if err != nil {
		return nil, err
	}
	aDatabase.pager = aPager

	if err := aDatabase.init(ctx); err != nil {
		return nil, errors.Join(err, aPager.Close(ctx))
	}

	return aDatabase, nil
}

// NewDatabase creates a database on top of an already opened pager, the page
// limit of the pager takes precedence over WithMaxPages.
func NewDatabase(ctx context.Context, logger *zap.Logger, aPager DBPager, opts ...DatabaseOption) (*Database, error) {
	aDatabase := newDatabase(logger, opts...)
	aDatabase.pager = aPager
	aDatabase.maxPages = aPager.MaxPages()

	if err := aDatabase.init(ctx); err != nil {
		return nil, err
	}

	return aDatabase, nil
}

func newDatabase(logger *zap.Logger, opts ...DatabaseOption) *Database {
	aDatabase := &Database{
		maxPages:  MaxPages,
		maxICells: InternalNodeMaxCells,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(aDatabase)
	}
	return aDatabase
}

func (d *Database) init(ctx context.Context) error {
	var (
		totalPages  = int(d.pager.TotalPages())
		rootPageIdx = PageIndex(0)
	)

	d.logger.Sugar().With(
		"total_pages", totalPages,
		"max_pages", int(d.pager.MaxPages()),
	).Debug("initializing database")

	aRootPage, err := d.pager.GetPage(ctx, rootPageIdx)
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if aRootPage.IsUnused() {
		// New database file, page 0 becomes an empty root leaf
		d.logger.Debug("creating root leaf node")
		aRootPage.InitializeLeaf().Header.IsRoot = true
	} else if !aRootPage.IsRoot() {
		return fmt.Errorf("init: %w: page %d is not a root node", ErrCorruptPage, rootPageIdx)
	}

	d.table = NewTable(d.logger, d.pager, rootPageIdx, WithTableMaxInternalCells(d.maxICells))

	return nil
}

func (d *Database) Table() *Table {
	return d.table
}

// Close flushes all pages to the disk and closes the database file.
func (d *Database) Close(ctx context.Context) error {
	d.logger.Sugar().With(
		"total_pages", int(d.pager.TotalPages()),
	).Debug("closing database")
	return d.pager.Close(ctx)
}

func (d *Database) ExecuteStatement(ctx context.Context, stmt Statement) (StatementResult, error) {
	if err := stmt.Validate(); err != nil {
		return StatementResult{}, err
	}

	switch stmt.Kind {
	case Insert:
		return d.executeInsert(ctx, stmt)
	case Select:
		return d.executeSelect(ctx, stmt)
	}
	return StatementResult{}, errUnrecognizedStatementType
}

func (d *Database) executeInsert(ctx context.Context, stmt Statement) (StatementResult, error) {
	if err := d.table.Insert(ctx, stmt.Row.ID, stmt.Row); err != nil {
		return StatementResult{}, err
	}
	return StatementResult{RowsAffected: 1}, nil
}

func (d *Database) executeSelect(ctx context.Context, stmt Statement) (StatementResult, error) {
	rows, err := d.table.Select(ctx)
	if err != nil {
		return StatementResult{}, err
	}
	return StatementResult{Rows: rows}, nil
}

type Stats struct {
	TotalPages uint32
	MaxPages   uint32
	FileSize   uint64 // size of the database file once all pages are flushed
}

func (d *Database) Stats() Stats {
	return Stats{
		TotalPages: d.pager.TotalPages(),
		MaxPages:   d.pager.MaxPages(),
		FileSize:   uint64(d.pager.TotalPages()) * PageSize,
	}
}
