package parser

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/RichardKnop/litdb/internal/litdb"
)

var (
	ErrEmptyInput    = errors.New("empty input")
	ErrSyntax        = errors.New("syntax error, could not parse statement")
	ErrNegativeID    = errors.New("ID must be positive")
	ErrStringTooLong = litdb.ErrStringTooLong
	ErrUnrecognized  = errors.New("unrecognized keyword")
)

type step int

const (
	stepBeginning step = iota + 1
	stepInsertID
	stepInsertUsername
	stepInsertEmail
	stepStatementEnd
)

type parser struct {
	litdb.Statement
	i    int // where we are in the input
	sql  string
	step step
}

func New() *parser {
	return new(parser)
}

// Parse turns a single input line into a statement:
//
//	insert <id> <username> <email>
//	select
func (p *parser) Parse(ctx context.Context, sql string) (litdb.Statement, error) {
	p.reset()
	p.setSQL(sql)

	if p.sql == "" {
		return litdb.Statement{}, ErrEmptyInput
	}

	if err := p.doParse(); err != nil {
		return litdb.Statement{}, err
	}

	return p.Statement, nil
}

func (p *parser) setSQL(sql string) *parser {
	p.sql = strings.TrimSpace(sql)
	return p
}

func (p *parser) reset() {
	p.Statement = litdb.Statement{}
	p.sql = ""
	p.step = stepBeginning
	p.i = 0
}

func (p *parser) doParse() error {
	for p.i < len(p.sql) {
		switch p.step {
		case stepBeginning:
			keyword := p.pop()
			switch strings.ToLower(keyword) {
			case "insert":
				p.Kind = litdb.Insert
				p.step = stepInsertID
			case "select":
				p.Kind = litdb.Select
				p.step = stepStatementEnd
			default:
				return fmt.Errorf("%w at start of %q", ErrUnrecognized, p.sql)
			}
		case stepInsertID:
			id, err := parseID(p.pop())
			if err != nil {
				return err
			}
			p.Row.ID = id
			p.step = stepInsertUsername
		case stepInsertUsername:
			username := p.pop()
			if len(username) > litdb.UsernameMaxLength {
				return fmt.Errorf("%w: username has %d bytes, max is %d", ErrStringTooLong, len(username), litdb.UsernameMaxLength)
			}
			p.Row.Username = username
			p.step = stepInsertEmail
		case stepInsertEmail:
			email := p.pop()
			if len(email) > litdb.EmailMaxLength {
				return fmt.Errorf("%w: email has %d bytes, max is %d", ErrStringTooLong, len(email), litdb.EmailMaxLength)
			}
			p.Row.Email = email
			p.step = stepStatementEnd
		case stepStatementEnd:
			return fmt.Errorf("%w: unexpected %q", ErrSyntax, p.peek())
		}
	}

	return p.validate()
}

func (p *parser) validate() error {
	if p.step != stepStatementEnd {
		return fmt.Errorf("%w: %s statement is incomplete", ErrSyntax, p.Kind)
	}
	return p.Statement.Validate()
}

func parseID(token string) (uint32, error) {
	id, err := strconv.ParseInt(token, 10, 64)
	if errors.Is(err, strconv.ErrRange) && strings.HasPrefix(token, "-") {
		return 0, ErrNegativeID
	}
	if err != nil {
		return 0, fmt.Errorf("%w: invalid ID %q", ErrSyntax, token)
	}
	if id < 0 {
		return 0, ErrNegativeID
	}
	if id > math.MaxUint32 {
		return 0, fmt.Errorf("%w: ID %d is out of range", ErrSyntax, id)
	}
	return uint32(id), nil
}

// peek returns the next whitespace separated token without consuming it.
func (p *parser) peek() string {
	peeked, _ := p.peekWithLength()
	return peeked
}

func (p *parser) pop() string {
	peeked, len := p.peekWithLength()
	p.i += len
	p.popWhitespace()
	return peeked
}

func (p *parser) popWhitespace() {
	for ; p.i < len(p.sql) && isWhitespace(p.sql[p.i]); p.i++ {
	}
}

func (p *parser) peekWithLength() (string, int) {
	if p.i >= len(p.sql) {
		return "", 0
	}
	for i := p.i; i < len(p.sql); i++ {
		if isWhitespace(p.sql[i]) {
			return p.sql[p.i:i], i - p.i
		}
	}
	return p.sql[p.i:], len(p.sql) - p.i
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
