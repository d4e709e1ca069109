package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pixclock/internal/cli"
	"github.com/matzehuels/pixclock/pkg/errors"
)

// Exit codes. A service manager restarts on exitFailure but not on
// exitUsage, which needs a config fix first.
const (
	exitFailure   = 1
	exitUsage     = 2
	exitInterrupt = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := execute(ctx)
	if err == nil {
		return
	}
	stop()
	os.Exit(report(err))
}

func execute(ctx context.Context) error {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log transport and refresh details")
	if os.Getenv("PIXCLOCK_DEBUG") != "" {
		verbose = true
	}

	setup := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		if setup == nil {
			return nil
		}
		return setup(cmd, args)
	}

	return root.ExecuteContext(ctx)
}

// report prints err and picks the exit code.
func report(err error) int {
	if stderrors.Is(err, context.Canceled) {
		return exitInterrupt
	}
	fmt.Fprintln(os.Stderr, "pixclock:", errors.UserMessage(err))
	if errors.ClassOf(err) == errors.ClassInput {
		return exitUsage
	}
	return exitFailure
}
