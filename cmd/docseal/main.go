// Command docseal is the client of a docseald server. It manages keys and
// runs the document sagas from the command line.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/iov-one/docseal"
)

type command func(input io.Reader, output io.Writer, args []string) error

// Every command parses its own flags from args and writes its result to
// output only.
var commands = map[string]command{
	"create":    cmdCreate,
	"decrypt":   cmdDecrypt,
	"keyaddr":   cmdKeyaddr,
	"keygen":    cmdKeygen,
	"keyserver": cmdKeyServer,
	"pending":   cmdPending,
	"resume":    cmdResume,
	"show":      cmdShow,
	"sign":      cmdSign,
	"version":   cmdVersion,
}

func main() {
	prog := os.Args[0]
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <command> [flags]\n%s", prog, usage(prog))
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "%s: no command %q\n%s", prog, os.Args[1], usage(prog))
		os.Exit(2)
	}
	if err := cmd(os.Stdin, os.Stdout, os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", prog, os.Args[1], err)
		os.Exit(1)
	}
}

func usage(prog string) string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("\ncommands:\n\t%s\n\nUse '%s <command> -help' for the flags of a command.\n",
		strings.Join(names, "\n\t"), prog)
}

func cmdVersion(input io.Reader, output io.Writer, args []string) error {
	_, err := fmt.Fprintln(output, docseal.Version())
	return err
}
