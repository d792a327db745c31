// Package output applies transcript commit side effects: clipboard, paste,
// and the optional post-paste clipboard clear.
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"dicto/internal/config"
)

// SettingsSource yields the settings snapshot governing commit behavior.
type SettingsSource interface {
	Get() config.Settings
}

// Commands holds the argv forms of the clipboard and paste helpers.
type Commands struct {
	ClipboardSet   []string
	ClipboardClear []string
	Paste          []string
}

// DefaultCommands returns the wayland-native helper commands.
func DefaultCommands() Commands {
	return Commands{
		ClipboardSet:   []string{"wl-copy", "--trim-newline"},
		ClipboardClear: []string{"wl-copy", "--clear"},
		Paste:          []string{"wtype", "-M", "ctrl", "-P", "v", "-p", "v", "-m", "ctrl"},
	}
}

// Committer applies transcript output side effects.
type Committer struct {
	settings SettingsSource
	commands Commands
	logger   *slog.Logger

	run func(ctx context.Context, argv []string, input string) error
}

// NewCommitter constructs a transcript committer.
func NewCommitter(settings SettingsSource, commands Commands, logger *slog.Logger) *Committer {
	if len(commands.ClipboardSet) == 0 {
		commands = DefaultCommands()
	}
	return &Committer{
		settings: settings,
		commands: commands,
		logger:   logger,
		run:      runCommandWithInput,
	}
}

// Commit writes transcript text to the clipboard, dispatches paste, and
// clears the clipboard afterwards when autoClearClipboard is set. Paste and
// clear failures are logged; the clipboard write is the only hard failure.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	clipboardCtx, clipboardCancel := context.WithTimeout(ctx, 2*time.Second)
	defer clipboardCancel()
	if err := c.run(clipboardCtx, c.commands.ClipboardSet, transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	pasteCtx, pasteCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pasteCancel()
	if err := c.run(pasteCtx, c.commands.Paste, ""); err != nil {
		c.logFailure("paste dispatch failed; clipboard remains set", err)
	}

	if c.settings != nil && c.settings.Get().AutoClearClipboard {
		clearCtx, clearCancel := context.WithTimeout(ctx, 2*time.Second)
		defer clearCancel()
		if err := c.run(clearCtx, c.commands.ClipboardClear, ""); err != nil {
			c.logFailure("clipboard clear failed", err)
		}
	}

	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

// logFailure records non-fatal commit-path errors.
func (c *Committer) logFailure(message string, err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error(message, "error", err.Error())
}
