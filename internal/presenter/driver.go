package presenter

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/mark3labs/syncwizard/internal/logger"
	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/setup"
)

// ErrInputClosed is returned by a prompt once the input has ended.
var ErrInputClosed = errors.New("input closed")

// Result is what a driven wizard run ended with.
type Result struct {
	Finished bool
	Folder   string
	Opened   string
}

// Driver answers the wizard's pages from line-based input. Notifications
// reach it through a Mailbox, so it calls actions from its own goroutine.
type Driver struct {
	ctrl *setup.Controller
	mb   *Mailbox
	out  io.Writer

	lines    chan string
	done     chan struct{}
	stopOnce sync.Once
	// ReadPassword reads a password without echo. When nil, passwords are
	// read as plain lines.
	ReadPassword func() (string, error)
}

// NewDriver creates a driver for c reading answers from in and writing
// prompts to out. The driver subscribes to c until Run returns.
func NewDriver(c *setup.Controller, in io.Reader, out io.Writer) *Driver {
	d := &Driver{
		ctrl:  c,
		mb:    NewMailbox(),
		out:   out,
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go d.scan(in)
	return d
}

// scan feeds input lines to prompts until the input ends or Run returns.
func (d *Driver) scan(in io.Reader) {
	defer close(d.lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		select {
		case d.lines <- scanner.Text():
		case <-d.done:
			return
		}
	}
}

func (d *Driver) stop() {
	d.stopOnce.Do(func() { close(d.done) })
}

// Run opens the wizard with start and answers pages until it is hidden.
// When ctx ends or input runs out the wizard is cancelled.
func (d *Driver) Run(ctx context.Context, start func()) (*Result, error) {
	unsubscribe := d.ctrl.Subscribe(NewForwarder(d.mb))
	defer unsubscribe()
	defer d.mb.Close()
	defer d.stop()

	start()

	res := &Result{}
	for {
		msg, err := d.mb.Receive(ctx)
		if err != nil {
			d.cancel()
			return res, err
		}
		switch msg := msg.(type) {
		case setup.WindowVisibilityMsg:
			if !msg.Visible {
				return res, nil
			}
		case setup.FolderOpenMsg:
			res.Opened = msg.Folder
		case setup.PageChangedMsg:
			if msg.Context.Folder != "" {
				res.Folder = msg.Context.Folder
			}
			if msg.Page == setup.PageFinished {
				res.Finished = true
			}
			if err := d.answer(ctx, msg); err != nil {
				d.cancel()
				if errors.Is(err, ErrInputClosed) {
					continue
				}
				return res, err
			}
		}
	}
}

// answer prompts for msg's page until the controller leaves it.
func (d *Driver) answer(ctx context.Context, msg setup.PageChangedMsg) error {
	for d.ctrl.Page() == msg.Page {
		var err error
		switch msg.Page {
		case setup.PageSetup:
			err = d.setup(ctx)
		case setup.PageAdd:
			err = d.add(ctx)
		case setup.PageInvite:
			err = d.confirmOr(ctx, "Add this project?", true, d.ctrl.InvitePageCompleted)
		case setup.PageError:
			err = d.confirmOr(ctx, "Try again?", true, d.ctrl.ErrorPageCompleted)
		case setup.PageStorageSetup:
			err = d.storage(ctx, msg.Context.StorageTypes)
		case setup.PageCryptoSetup:
			err = d.password(ctx, "New password", d.ctrl.CryptoSetupPageCompleted)
		case setup.PageCryptoPassword:
			err = d.password(ctx, "Password", d.ctrl.CryptoPasswordPageCompleted)
		case setup.PageFinished:
			err = d.finish(ctx)
		default:
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) setup(ctx context.Context) error {
	session, _ := d.ctrl.Snapshot()
	name, err := d.ask(ctx, "Full name", session.Name)
	if err != nil {
		return err
	}
	email, err := d.ask(ctx, "Email", session.Email)
	if err != nil {
		return err
	}
	d.ctrl.SetupPageCompleted(name, email)
	if d.ctrl.Page() == setup.PageSetup {
		d.printf("A name and a valid email address are required.\n")
	}
	return nil
}

func (d *Driver) add(ctx context.Context) error {
	presets := d.ctrl.Presets()
	session, _ := d.ctrl.Snapshot()

	if len(presets) > 0 {
		for i, p := range presets {
			d.printf("  %d. %s\n", i+1, p.Name)
		}
		d.printf("  0. Own address\n")
		current := session.PresetIndex + 1
		answer, err := d.ask(ctx, "Host", strconv.Itoa(current))
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(answer)
		if convErr != nil || n < 0 || n > len(presets) {
			d.printf("Pick a number between 0 and %d.\n", len(presets))
			return nil
		}
		d.ctrl.SelectedPresetChanged(n - 1)
		session, _ = d.ctrl.Snapshot()
	}

	address, remotePath := session.PreviousAddress, session.PreviousPath
	var selected preset.Preset
	if session.PresetIndex >= 0 && session.PresetIndex < len(presets) {
		selected = presets[session.PresetIndex]
	}
	var err error
	if !selected.FixesAddress() {
		if address, err = d.ask(ctx, "Address", address); err != nil {
			return err
		}
	}
	if !selected.FixesPath() {
		if remotePath, err = d.ask(ctx, "Remote path", remotePath); err != nil {
			return err
		}
	}

	history, err := d.confirm(ctx, "Fetch prior revisions?", session.FetchHistory)
	if err != nil {
		return err
	}
	d.ctrl.HistoryItemChanged(history)
	d.ctrl.AddPageCompleted(address, remotePath)
	if d.ctrl.Page() == setup.PageAdd {
		d.printf("An address and a remote path are required.\n")
	}
	return nil
}

func (d *Driver) storage(ctx context.Context, types []setup.StorageTypeInfo) error {
	if len(types) == 0 {
		d.ctrl.PageCancelled()
		return nil
	}
	answer, err := d.ask(ctx, "Storage type", "1")
	if err != nil {
		return err
	}
	n, convErr := strconv.Atoi(answer)
	if convErr != nil || n < 1 || n > len(types) {
		d.printf("Pick a number between 1 and %d.\n", len(types))
		return nil
	}
	d.ctrl.StoragePageCompleted(types[n-1].Type)
	return nil
}

func (d *Driver) password(ctx context.Context, label string, complete func(string)) error {
	var password string
	var err error
	if d.ReadPassword != nil {
		d.printf("%s: ", label)
		password, err = d.ReadPassword()
		d.printf("\n")
		if err != nil {
			logger.Warn("reading password failed: %v", err)
			return ErrInputClosed
		}
	} else if password, err = d.ask(ctx, label, ""); err != nil {
		return err
	}
	complete(password)
	if page := d.ctrl.Page(); page == setup.PageCryptoSetup || page == setup.PageCryptoPassword {
		d.printf("That password can't be used.\n")
	}
	return nil
}

func (d *Driver) finish(ctx context.Context) error {
	open, err := d.confirm(ctx, "Show files?", false)
	if err != nil {
		return err
	}
	if open {
		d.ctrl.ShowFilesClicked()
	} else {
		d.ctrl.FinishPageCompleted()
	}
	return nil
}

// confirmOr runs yes on a positive answer and cancels otherwise.
func (d *Driver) confirmOr(ctx context.Context, question string, def bool, yes func()) error {
	ok, err := d.confirm(ctx, question, def)
	if err != nil {
		return err
	}
	if ok {
		yes()
	} else {
		d.ctrl.PageCancelled()
	}
	return nil
}

func (d *Driver) confirm(ctx context.Context, question string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	answer, err := d.ask(ctx, question+" ["+hint+"]", "")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "":
		return def, nil
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// ask prompts for one line; an empty answer keeps def.
func (d *Driver) ask(ctx context.Context, label, def string) (string, error) {
	if def != "" {
		d.printf("%s [%s]: ", label, def)
	} else {
		d.printf("%s: ", label)
	}
	select {
	case line, ok := <-d.lines:
		if !ok {
			d.printf("\n")
			return "", ErrInputClosed
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return def, nil
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// cancel hides the wizard with the cancel action that fits its page.
func (d *Driver) cancel() {
	switch d.ctrl.Page() {
	case setup.PageHidden:
	case setup.PageSyncing:
		d.ctrl.SyncingCancelled()
	case setup.PageCryptoSetup, setup.PageCryptoPassword:
		d.ctrl.CryptoPageCancelled()
	default:
		d.ctrl.PageCancelled()
	}
}

func (d *Driver) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(d.out, format, args...)
}
