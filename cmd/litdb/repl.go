package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/RichardKnop/litdb/internal/litdb"
	"github.com/RichardKnop/litdb/internal/parser"
)

type Parser interface {
	Parse(context.Context, string) (litdb.Statement, error)
}

type repl struct {
	db     *litdb.Database
	parser Parser
	in     io.Reader
	out    io.Writer
}

func newREPL(aDatabase *litdb.Database, in io.Reader, out io.Writer) *repl {
	return &repl{
		db:     aDatabase,
		parser: parser.New(),
		in:     in,
		out:    out,
	}
}

func (r *repl) printPrompt() {
	fmt.Fprint(r.out, cliName, " > ")
}

// Run reads statements line by line until .exit, the end of input or until
// ctx is cancelled. Statements only run on the calling goroutine, once Run
// returns the database is no longer used and can be closed.
func (r *repl) Run(ctx context.Context) error {
	var (
		lines   = make(chan string)
		scanErr = make(chan error, 1)
		stop    = make(chan struct{})
	)
	defer close(stop)

	// Scanning blocks on the input, read lines in the background so that
	// cancelling ctx is noticed between statements
	go func() {
		defer close(lines)
		reader := bufio.NewScanner(r.in)
		for reader.Scan() {
			select {
			case lines <- reader.Text():
			case <-stop:
				return
			}
		}
		scanErr <- reader.Err()
	}()

	r.printPrompt()

	// REPL (Read-eval-print loop) start
	for {
		var (
			inputBuffer string
			ok          bool
		)
		select {
		case <-ctx.Done():
			return nil
		case inputBuffer, ok = <-lines:
		}
		if !ok {
			// Print an additional line if we encountered an EOF character
			fmt.Fprintln(r.out)
			return <-scanErr
		}
		if ctx.Err() != nil {
			return nil
		}

		if parser.IsMetaCommand(inputBuffer) {
			exit, err := r.doMetaCommand(ctx, inputBuffer)
			if err != nil {
				fmt.Fprintf(r.out, "Error: %s\n", err)
			}
			if exit {
				return nil
			}
		} else {
			r.doStatement(ctx, inputBuffer)
		}
		r.printPrompt()
	}
}

func (r *repl) doMetaCommand(ctx context.Context, inputBuffer string) (bool, error) {
	aCommand, err := parser.ParseMetaCommand(inputBuffer)
	if err != nil {
		fmt.Fprintf(r.out, "Unrecognized command '%s'.\n", inputBuffer)
		return false, nil
	}

	switch aCommand {
	case parser.MetaExit:
		return true, nil
	case parser.MetaHelp:
		fmt.Fprintln(r.out, "insert <id> <username> <email> - Insert a row")
		fmt.Fprintln(r.out, "select                         - Print all rows in key order")
		fmt.Fprintln(r.out, ".btree                         - Print the B-tree")
		fmt.Fprintln(r.out, ".constants                     - Print storage layout constants")
		fmt.Fprintln(r.out, ".stats                         - Print database file statistics")
		fmt.Fprintln(r.out, ".help                          - Show available commands")
		fmt.Fprintln(r.out, ".exit                          - Flush pages and close program")
	case parser.MetaConstants:
		fmt.Fprintln(r.out, "Constants:")
		return false, litdb.PrintConstants(r.out)
	case parser.MetaBtree:
		fmt.Fprintln(r.out, "Tree:")
		return false, r.db.Table().PrintTree(ctx, r.out)
	case parser.MetaStats:
		stats := r.db.Stats()
		fmt.Fprintf(r.out, "Pages: %d of %d\n", stats.TotalPages, stats.MaxPages)
		fmt.Fprintf(r.out, "File size: %s\n", humanize.IBytes(stats.FileSize))
	}

	return false, nil
}

func (r *repl) doStatement(ctx context.Context, inputBuffer string) {
	stmt, err := r.parser.Parse(ctx, inputBuffer)
	if err != nil {
		switch {
		case errors.Is(err, parser.ErrEmptyInput):
			// Blank line, just print the prompt again
		case errors.Is(err, parser.ErrNegativeID):
			fmt.Fprintln(r.out, "ID must be positive.")
		case errors.Is(err, parser.ErrStringTooLong):
			fmt.Fprintln(r.out, "String is too long.")
		case errors.Is(err, parser.ErrUnrecognized):
			fmt.Fprintf(r.out, "Unrecognized keyword at start of '%s'.\n", inputBuffer)
		default:
			fmt.Fprintln(r.out, "Syntax error. Could not parse statement.")
		}
		return
	}

	aResult, err := r.db.ExecuteStatement(ctx, stmt)
	if err != nil {
		switch {
		case errors.Is(err, litdb.ErrTableFull):
			fmt.Fprintln(r.out, "Error: Table full.")
		case errors.Is(err, litdb.ErrDuplicateKey):
			fmt.Fprintln(r.out, "Error: Duplicate key.")
		default:
			fmt.Fprintf(r.out, "Error executing statement: %s\n", err)
		}
		return
	}

	if stmt.Kind == litdb.Select {
		aRow, err := aResult.Rows(ctx)
		for ; err == nil; aRow, err = aResult.Rows(ctx) {
			fmt.Fprintln(r.out, aRow.String())
		}
		if !errors.Is(err, litdb.ErrNoMoreRows) {
			fmt.Fprintf(r.out, "Error executing statement: %s\n", err)
			return
		}
	}
	fmt.Fprintln(r.out, "Executed.")
}
