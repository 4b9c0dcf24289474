// Command hashview reads and writes hash records through a
// whitelist-restricted view.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/roach88/hashview/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
