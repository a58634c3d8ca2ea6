package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/mark3labs/syncwizard/internal/preset"
	"github.com/mark3labs/syncwizard/internal/setup"
	"github.com/mark3labs/syncwizard/internal/validate"
)

// maxWait caps how long wizard-status may block.
const maxWait = 60 * time.Second

// Status is the JSON every tool answers with.
type Status struct {
	Visible      bool          `json:"visible"`
	Page         string        `json:"page"`
	Warnings     []string      `json:"warnings,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty"`
	PresetIndex  int           `json:"preset_index"`
	Preset       string        `json:"preset,omitempty"`
	Folder       string        `json:"folder,omitempty"`
	Progress     float64       `json:"progress"`
	Speed        string        `json:"speed,omitempty"`
	StorageTypes []string      `json:"storage_types,omitempty"`
	Invite       *setup.Invite `json:"invite,omitempty"`
	FetchHistory bool          `json:"fetch_history"`
}

// registerTools registers one tool per wizard action.
func (s *Server) registerTools() error {
	s.mcpServer.AddTool(
		mcp.NewTool("wizard-status",
			mcp.WithDescription("Show the wizard's current page, warnings and progress"),
			mcp.WithNumber("wait_ms",
				mcp.Description("While syncing, wait up to this many milliseconds for the page to change"),
			),
		),
		s.handleStatus,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("wizard-start",
			mcp.WithDescription("Open the wizard, optionally for an invite"),
			mcp.WithString("invite_address", mcp.Description("Address from the invite")),
			mcp.WithString("invite_path", mcp.Description("Remote path from the invite")),
			mcp.WithString("invite_fingerprint", mcp.Description("Host key fingerprint from the invite")),
		),
		s.handleStart,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("setup-complete",
			mcp.WithDescription("Submit the user's name and email"),
			mcp.WithString("name", mcp.Required(), mcp.Description("Full name")),
			mcp.WithString("email", mcp.Required(), mcp.Description("Email address")),
		),
		s.handleSetupComplete,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("select-preset",
			mcp.WithDescription("Select a hosting preset by index; -1 enters the address manually"),
			mcp.WithNumber("index", mcp.Required(), mcp.Description("Preset index, or -1")),
		),
		s.handleSelectPreset,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("set-history",
			mcp.WithDescription("Choose whether prior revisions are fetched"),
			mcp.WithBoolean("fetch", mcp.Required(), mcp.Description("Fetch prior revisions")),
		),
		s.handleSetHistory,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("add-complete",
			mcp.WithDescription("Submit the remote address and path and start adding the project"),
			mcp.WithString("address", mcp.Description("Remote address (ignored if the preset fixes it)")),
			mcp.WithString("path", mcp.Description("Remote path (ignored if the preset fixes it)")),
		),
		s.handleAddComplete,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("invite-accept",
			mcp.WithDescription("Accept the pending invite and start adding the project"),
		),
		s.handleInviteAccept,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("storage-select",
			mcp.WithDescription("Choose the storage type for a new project"),
			mcp.WithString("type", mcp.Required(),
				mcp.Enum(string(setup.StoragePlain), string(setup.StorageEncrypted)),
				mcp.Description("Storage type"),
			),
		),
		s.handleStorageSelect,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("password-submit",
			mcp.WithDescription("Submit the encryption password on either password page"),
			mcp.WithString("password", mcp.Required(), mcp.Description("Encryption password")),
		),
		s.handlePasswordSubmit,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("retry",
			mcp.WithDescription("Try the failed fetch again"),
		),
		s.handleRetry,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("cancel",
			mcp.WithDescription("Cancel the wizard from whatever page it is on"),
		),
		s.handleCancel,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("finish",
			mcp.WithDescription("Close the finished wizard"),
			mcp.WithBoolean("show_files", mcp.Description("Reveal the project folder instead of just closing")),
		),
		s.handleFinish,
	)

	return nil
}

// status renders the controller's current state.
func (s *Server) status() Status {
	session, ok := s.ctrl.Snapshot()
	if !ok {
		return Status{Page: setup.PageHidden.String(), PresetIndex: setup.ManualPreset}
	}

	st := Status{
		Visible:      true,
		Page:         session.Page.String(),
		Warnings:     session.Warnings,
		Name:         session.Name,
		Email:        session.Email,
		PresetIndex:  session.PresetIndex,
		Folder:       session.Folder,
		Progress:     session.Progress,
		Speed:        session.Speed,
		Invite:       session.PendingInvite,
		FetchHistory: session.FetchHistory,
	}
	if presets := s.ctrl.Presets(); session.PresetIndex >= 0 && session.PresetIndex < len(presets) {
		st.Preset = presets[session.PresetIndex].Name
	}
	for _, t := range session.StorageTypes {
		st.StorageTypes = append(st.StorageTypes, string(t.Type))
	}
	return st
}

func (s *Server) statusResult() (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(s.status(), "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode status: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// act runs fn when the wizard is on one of pages, then reports the new status.
func (s *Server) act(pages []setup.PageType, fn func()) (*mcp.CallToolResult, error) {
	current := s.ctrl.Page()
	for _, p := range pages {
		if p == current {
			fn()
			return s.statusResult()
		}
	}
	names := make([]string, len(pages))
	for i, p := range pages {
		names[i] = p.String()
	}
	return mcp.NewToolResultError(fmt.Sprintf("wizard is on page %q, this tool needs %s", current, strings.Join(names, " or "))), nil
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// handleStatus reports the current status, waiting out Syncing when asked.
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	waitMS, _ := args["wait_ms"].(float64)
	wait := time.Duration(waitMS) * time.Millisecond
	if wait > maxWait {
		wait = maxWait
	}
	if wait <= 0 {
		return s.statusResult()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	for {
		changed := s.watcher.next()
		if s.ctrl.Page() != setup.PageSyncing {
			return s.statusResult()
		}
		select {
		case <-changed:
		case <-timer.C:
			return s.statusResult()
		case <-ctx.Done():
			return s.statusResult()
		}
	}
}

// handleStart opens the wizard, for an invite when an address is given.
func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	address := stringArg(args, "invite_address")
	if address == "" {
		s.ctrl.Start()
		return s.statusResult()
	}
	s.ctrl.InviteReceived(setup.Invite{
		Address:     address,
		RemotePath:  stringArg(args, "invite_path"),
		Fingerprint: stringArg(args, "invite_fingerprint"),
	})
	return s.statusResult()
}

func (s *Server) handleSetupComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	name, email := stringArg(args, "name"), stringArg(args, "email")
	if !validate.Identity(name, email) {
		return mcp.NewToolResultError("a name and a valid email address are required"), nil
	}
	return s.act([]setup.PageType{setup.PageSetup}, func() {
		s.ctrl.SetupPageCompleted(name, email)
	})
}

func (s *Server) handleSelectPreset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	raw, ok := args["index"].(float64)
	if !ok {
		return mcp.NewToolResultError("missing 'index' parameter"), nil
	}
	index := int(raw)
	if index != setup.ManualPreset && (index < 0 || index >= len(s.ctrl.Presets())) {
		return mcp.NewToolResultError(fmt.Sprintf("no preset at index %d", index)), nil
	}
	return s.act([]setup.PageType{setup.PageAdd}, func() {
		s.ctrl.SelectedPresetChanged(index)
	})
}

func (s *Server) handleSetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fetch, ok := request.GetArguments()["fetch"].(bool)
	if !ok {
		return mcp.NewToolResultError("missing 'fetch' parameter"), nil
	}
	return s.act([]setup.PageType{setup.PageSetup, setup.PageAdd, setup.PageInvite}, func() {
		s.ctrl.HistoryItemChanged(fetch)
	})
}

func (s *Server) handleAddComplete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	address, remotePath := stringArg(args, "address"), stringArg(args, "path")

	if session, ok := s.ctrl.Snapshot(); ok && session.Page == setup.PageAdd {
		var selected *preset.Preset
		if presets := s.ctrl.Presets(); session.PresetIndex >= 0 && session.PresetIndex < len(presets) {
			selected = &presets[session.PresetIndex]
		}
		if !validate.AddPage(address, remotePath, selected) {
			return mcp.NewToolResultError("an address and a remote path are required"), nil
		}
	}
	return s.act([]setup.PageType{setup.PageAdd}, func() {
		s.ctrl.AddPageCompleted(address, remotePath)
	})
}

func (s *Server) handleInviteAccept(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.act([]setup.PageType{setup.PageInvite}, s.ctrl.InvitePageCompleted)
}

func (s *Server) handleStorageSelect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t := setup.StorageType(stringArg(request.GetArguments(), "type"))
	if t != setup.StoragePlain && t != setup.StorageEncrypted {
		return mcp.NewToolResultError(fmt.Sprintf("unknown storage type %q", t)), nil
	}
	return s.act([]setup.PageType{setup.PageStorageSetup}, func() {
		s.ctrl.StoragePageCompleted(t)
	})
}

func (s *Server) handlePasswordSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	password := stringArg(request.GetArguments(), "password")

	switch s.ctrl.Page() {
	case setup.PageCryptoSetup:
		if !validate.PasswordSetup(password) {
			return mcp.NewToolResultError(fmt.Sprintf("the password must be at least %d characters", validate.MinPasswordLength)), nil
		}
		return s.act([]setup.PageType{setup.PageCryptoSetup}, func() {
			s.ctrl.CryptoSetupPageCompleted(password)
		})
	default:
		if !validate.PasswordUnlock(password) {
			return mcp.NewToolResultError("the password must not be empty"), nil
		}
		return s.act([]setup.PageType{setup.PageCryptoPassword}, func() {
			s.ctrl.CryptoPasswordPageCompleted(password)
		})
	}
}

func (s *Server) handleRetry(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.act([]setup.PageType{setup.PageError}, s.ctrl.ErrorPageCompleted)
}

// handleCancel picks the cancel action that belongs to the current page.
func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	switch page := s.ctrl.Page(); page {
	case setup.PageHidden:
		return mcp.NewToolResultError("the wizard is not open"), nil
	case setup.PageSyncing:
		s.ctrl.SyncingCancelled()
	case setup.PageCryptoSetup, setup.PageCryptoPassword:
		s.ctrl.CryptoPageCancelled()
	default:
		s.ctrl.PageCancelled()
	}
	return s.statusResult()
}

func (s *Server) handleFinish(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	showFiles, _ := request.GetArguments()["show_files"].(bool)
	if showFiles {
		return s.act([]setup.PageType{setup.PageFinished}, s.ctrl.ShowFilesClicked)
	}
	return s.act([]setup.PageType{setup.PageFinished}, s.ctrl.FinishPageCompleted)
}
