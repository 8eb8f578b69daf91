package repl

import (
	"bufio"
	"fmt"
	"io"

	"github.com/relicdb/storedb/dbms/btree"
)

const prompt = "db > "

// Run drives the read-execute-print loop: print the prompt, read one
// line, execute it against tree, print the result, repeat until .exit
// or a fatal error. Run returns nil after a clean .exit.
func Run(tree *btree.Tree, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}

		result, err := Execute(tree, scanner.Text())
		if err != nil {
			return err
		}
		if result.Output != "" {
			fmt.Fprintln(out, result.Output)
		}
		if result.Exit {
			return nil
		}
	}
}
