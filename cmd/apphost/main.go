// Command apphost is the native launcher template. An unbound build carries
// the placeholder in binding; `hostresolve apphost create` copies the
// binary and overwrites the placeholder with the application file name.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/specialistvlad/hostresolve/internal/cli"
)

// binding must stay a package variable holding the literal placeholder so
// the bytes appear verbatim in the built binary.
var binding = "c3ab8ff13720e8ad9047dd39466b3c8974e592c2fa383d4a3960714caef0c4f2"

func main() {
	exe, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := cli.RunAppHost(context.Background(), cli.Env{}, binding, exe, os.Args[1:]); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
