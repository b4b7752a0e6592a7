// Package main is the entry point for the quake build tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/quake/cmd/quake/commands"
	"go.trai.ch/quake/internal/app"
	"go.trai.ch/quake/internal/core/domain"
	_ "go.trai.ch/quake/internal/wiring"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed.
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return 1
	}

	// Flush the progress renderer before the process exits.
	if c, ok := components.Tracer.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}

	cli := commands.New(components.App)

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, domain.ErrBuildFailed) {
			// The failure report was already printed; the metadata-rich
			// form goes to stderr for debugging.
			_, _ = fmt.Fprintf(os.Stderr, "%+v\n", err)
			return 1
		}
		components.Logger.Error(err)
		return 1
	}
	return 0
}
