// Command inkwell builds a site of Markdown essays into static HTML and can
// serve it with live rebuilds while writing.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/ancientlore/inkwell/failure"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// main is where it all begins.
func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "inkwell: cannot load .env: %v\n", err)
		os.Exit(failure.ExitUsage)
	}
	os.Exit(run(context.Background(), newRootCmd(nil), os.Args[1:], os.Stdout, os.Stderr))
}

// run executes cmd with args and returns the exit status.
func run(ctx context.Context, cmd *cobra.Command, args []string, stdout, stderr io.Writer) int {
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "inkwell: %v\n", err)
	}
	return failure.ExitCode(err)
}
