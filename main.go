// Command duniad is the node's entry point: it wires up logging and
// hands off to the cli command tree. Grounded on main.go, which here is
// the teacher's first-chapter tutorial stub (an in-memory toy chain with
// no relation to the blockchain/network/cli packages it later builds);
// this replaces it with the wiring cli/cli.go's Run actually needed.
package main

import (
	"fmt"
	"os"

	"github.com/duniad/duniad/cli"
	"github.com/duniad/duniad/internal/duniadlog"
	"github.com/duniad/duniad/nodeid"
)

func main() {
	id := nodeid.FromEnvironment()
	if err := duniadlog.InitLogRotator(id.DataDir); err != nil {
		fmt.Fprintf(os.Stderr, "duniad: initializing log rotation: %v\n", err)
	}
	defer duniadlog.Close()

	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "duniad: %v\n", err)
		os.Exit(1)
	}
}
