// Package app provides the gitnar server application.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/kart-io/gitnar/cmd/gitnar/app/options"
	"github.com/kart-io/gitnar/pkg/app"
)

const (
	// Name is the name of the application.
	Name = "gitnar"

	// commandDesc is the description of the command.
	commandDesc = `Gitnar Repository Question Answering Service

Gitnar answers natural language questions about registered code
repositories using embedding similarity retrieval.

This server provides:
  - Repository registration with line-window chunking and embeddings
  - Semantic fragment retrieval over single repositories and groups
  - Conversation sessions with scope-pinned history threading
  - Budgeted prompt assembly and LLM answer generation`
)

// NewApp creates and returns a new App object with default parameters.
func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		app.WithName(Name),
		app.WithShortDescription("Repository question answering service"),
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithRunFunc(run(opts)),
	)

	return application
}

// run contains the main logic for initializing and running the server.
func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		ctx := setupSignalContext()

		server, err := cfg.NewServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create server: %w", err)
		}

		return server.Run(ctx)
	}
}

// setupSignalContext returns a context that is cancelled on SIGINT or SIGTERM.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
