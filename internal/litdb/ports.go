package litdb

import (
	"context"
)

type Pager interface {
	GetPage(context.Context, PageIndex) (*Page, error)
	GetFreePage(context.Context) (*Page, error)
	TotalPages() uint32
	MaxPages() uint32
	Flush(context.Context, PageIndex) error
}

// DBPager is a Pager which owns the database file.
type DBPager interface {
	Pager
	Close(context.Context) error
}
