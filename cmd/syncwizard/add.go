package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/mark3labs/syncwizard/internal/presenter"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/tui"
	"github.com/mark3labs/syncwizard/internal/tui/theme"
)

var addFlags struct {
	inviteAddress     string
	invitePath        string
	inviteFingerprint string
	tui               bool
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a shared project",
	Long: `Run the wizard that adds a shared project.

Without flags the wizard asks for your name and email when they are not
configured yet, then for the host and path of the project. With
--invite-address it opens on the invite instead.

Use --tui for the full-screen wizard.`,
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addFlags.inviteAddress, "invite-address", "", "Address from an invite")
	addCmd.Flags().StringVar(&addFlags.invitePath, "invite-path", "", "Remote path from an invite")
	addCmd.Flags().StringVar(&addFlags.inviteFingerprint, "invite-fingerprint", "", "Host key fingerprint from an invite")
	addCmd.Flags().BoolVar(&addFlags.tui, "tui", false, "Show the full-screen wizard")
}

func runAdd(cmd *cobra.Command, args []string) error {
	if addFlags.inviteAddress == "" && (addFlags.invitePath != "" || addFlags.inviteFingerprint != "") {
		return fmt.Errorf("--invite-path and --invite-fingerprint need --invite-address")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := appOptions{}
	if !addFlags.tui {
		opts.hookOutput = cmd.OutOrStdout()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.close()

	start := a.ctrl.Start
	if addFlags.inviteAddress != "" {
		invite := setup.Invite{
			Address:     addFlags.inviteAddress,
			RemotePath:  addFlags.invitePath,
			Fingerprint: addFlags.inviteFingerprint,
		}
		start = func() { a.ctrl.InviteReceived(invite) }
	}

	var finished bool
	var folder string
	if addFlags.tui {
		res, err := tui.Run(ctx, a.ctrl, a.identity, start)
		if err != nil {
			return err
		}
		finished, folder = res.Finished, res.Folder
	} else {
		unsubscribe := a.ctrl.Subscribe(presenter.NewConsole(cmd.OutOrStdout()))
		defer unsubscribe()

		driver := presenter.NewDriver(a.ctrl, cmd.InOrStdin(), cmd.OutOrStdout())
		if fd := os.Stdin.Fd(); term.IsTerminal(fd) {
			driver.ReadPassword = func() (string, error) {
				b, err := term.ReadPassword(fd)
				return string(b), err
			}
		}
		res, err := driver.Run(ctx, start)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		finished, folder = res.Finished, res.Folder
	}

	if finished && folder != "" {
		s := theme.Current().S()
		fmt.Fprintln(cmd.OutOrStdout(), s.Success.Render("Project added at "+a.targetDir(folder)))
	}
	return nil
}
