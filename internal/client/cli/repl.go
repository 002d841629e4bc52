package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it;
// tests can provide a stub.
type execIface interface {
	Exec(ctx context.Context, args []string) error
}

// runREPL reads one command per line until EOF or exit/quit. Errors are
// reported and the loop carries on.
func runREPL(ctx context.Context, a execIface, prompt string, scanner *bufio.Scanner, out io.Writer) {
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "exit", "quit":
			fmt.Fprintln(out, "Bye!")
			return
		}

		if err := a.Exec(ctx, parts); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}
