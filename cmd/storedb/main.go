// Command storedb is the line-oriented REPL front end for the embedded
// table store: one positional argument names the database file, then
// every line read from stdin is parsed and executed until .exit.
package main

import (
	"fmt"
	"os"

	"github.com/relicdb/storedb/dbms/btree"
	"github.com/relicdb/storedb/dbms/pager"
	"github.com/relicdb/storedb/dbms/repl"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Must supply a database filename.")
		os.Exit(1)
	}

	pg, err := pager.Open(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	tree, err := btree.Open(pg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := repl.Run(tree, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
