// Package main is the entry point for the sshman binary.
//
// sshman keeps a list of named ssh hosts and launches the system ssh client
// for them. Without arguments it starts the interactive "ssh>" shell; with a
// host name it connects directly and exits with ssh's status.
//
//	sshman            # interactive shell
//	sshman web        # connect to the host named web
//	sshman list       # print the host table
//	sshman browse     # full-screen dashboard
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/treykane/sshman/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
