package parser

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnrecognizedMeta = errors.New("unrecognized command")
)

type MetaCommand int

const (
	MetaExit MetaCommand = iota + 1
	MetaHelp
	MetaConstants
	MetaBtree
	MetaStats
)

func (m MetaCommand) String() string {
	switch m {
	case MetaExit:
		return ".exit"
	case MetaHelp:
		return ".help"
	case MetaConstants:
		return ".constants"
	case MetaBtree:
		return ".btree"
	case MetaStats:
		return ".stats"
	default:
		return "Unknown"
	}
}

// IsMetaCommand reports whether the line is a meta command rather than a statement.
func IsMetaCommand(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), ".")
}

func ParseMetaCommand(line string) (MetaCommand, error) {
	line = strings.TrimSpace(line)
	for _, aCommand := range []MetaCommand{MetaExit, MetaHelp, MetaConstants, MetaBtree, MetaStats} {
		if line == aCommand.String() {
			return aCommand, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnrecognizedMeta, line)
}
