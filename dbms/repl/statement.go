// Package repl parses and executes the line-oriented command grammar
// the storedb REPL accepts: the two table statements (insert, select)
// and the meta-commands (.exit, .btree, .constants). It generalizes the
// prepare_statement/execute_statement dispatch shape of the classic
// tutorial's Go port (other_examples/weedge-baby-db) onto this module's
// dbms/btree and dbms/row packages.
package repl

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/relicdb/storedb/dbms/row"
)

// ErrSyntax is returned when an insert statement does not have exactly
// the expected number of fields or its id is not an integer.
var ErrSyntax = errors.New("Syntax error. Could not parse statement.")

type statementKind int

const (
	stmtInsert statementKind = iota
	stmtSelect
)

type statement struct {
	kind statementKind
	row  row.Row
}

func parseStatement(line string) (statement, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return statement{}, unrecognizedKeywordErr(line)
	}

	switch fields[0] {
	case "insert":
		return parseInsert(line, fields)
	case "select":
		return statement{kind: stmtSelect}, nil
	default:
		return statement{}, unrecognizedKeywordErr(line)
	}
}

func parseInsert(line string, fields []string) (statement, error) {
	if len(fields) != 4 {
		return statement{}, ErrSyntax
	}

	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return statement{}, ErrSyntax
	}

	if verr := row.Validate(id, fields[2], fields[3]); verr != nil {
		return statement{}, verr
	}

	return statement{
		kind: stmtInsert,
		row:  row.Row{ID: uint32(id), Username: fields[2], Email: fields[3]},
	}, nil
}

func unrecognizedKeywordErr(line string) error {
	return errors.Errorf("Unrecognized keyword at start of '%s'.", line)
}
