package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/syncwizard/internal/mcpserver"
	"github.com/mark3labs/syncwizard/internal/presenter"
	"github.com/mark3labs/syncwizard/internal/setup"
)

var serveFlags struct {
	addr  string
	quiet bool
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Drive the wizard over MCP",
	Long: `Serve the wizard's actions as MCP tools over streamable HTTP, so an agent
or a script can add a project. Start with the wizard-start tool and follow
the page reported by wizard-status.

Pages are echoed to stderr unless --quiet is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.addr, "addr", "127.0.0.1:7777", "Address to listen on (empty picks a free port)")
	serveCmd.Flags().BoolVarP(&serveFlags.quiet, "quiet", "q", false, "Don't echo pages to stderr")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, appOptions{hookOutput: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.close()

	if !serveFlags.quiet {
		unsubscribe := a.ctrl.Subscribe(presenter.NewConsole(cmd.ErrOrStderr()))
		defer unsubscribe()
	}

	srv := mcpserver.New(a.ctrl)
	if _, err := srv.Start(ctx, serveFlags.addr); err != nil {
		return fmt.Errorf("failed to start MCP server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on %s\n", srv.URL())
	<-ctx.Done()
	fmt.Fprintln(cmd.OutOrStdout(), "\nShutting down...")

	switch a.ctrl.Page() {
	case setup.PageHidden:
	case setup.PageSyncing:
		a.ctrl.SyncingCancelled()
	case setup.PageCryptoSetup, setup.PageCryptoPassword:
		a.ctrl.CryptoPageCancelled()
	default:
		a.ctrl.PageCancelled()
	}
	return nil
}
