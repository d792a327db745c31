// Package app dispatches CLI commands onto the session, daemon, and
// diagnostics surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"dicto/internal/api"
	"dicto/internal/audio"
	"dicto/internal/cli"
	"dicto/internal/config"
	"dicto/internal/doctor"
	"dicto/internal/gemini"
	"dicto/internal/groq"
	"dicto/internal/history"
	"dicto/internal/ipc"
	"dicto/internal/keys"
	"dicto/internal/logging"
	"dicto/internal/output"
	"dicto/internal/pipeline"
	"dicto/internal/session"
	"dicto/internal/version"
)

const forwardTimeout = 2 * time.Second

// Runner executes one CLI invocation.
type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Execute runs args with process-standard streams and returns the exit code.
func Execute(ctx context.Context, args []string) int {
	runner := &Runner{Stdout: os.Stdout, Stderr: os.Stderr}
	return runner.Execute(ctx, args)
}

// Execute parses args and dispatches to the selected command.
func (r *Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n%s", err, cli.HelpText("dicto"))
		return 2
	}

	switch parsed.Command {
	case cli.CommandHelp:
		fmt.Fprint(r.Stdout, cli.HelpText("dicto"))
		return 0
	case cli.CommandVersion:
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logger, closeLogger := r.newLogger()
	defer closeLogger()

	settingsPath, err := config.SettingsPath(parsed.SettingsPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: resolve settings path: %v\n", err)
		return 1
	}

	store := config.NewStore(settingsPath, logger)
	store.Load()

	configDir, err := config.ConfigDir()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: resolve config dir: %v\n", err)
		return 1
	}
	vault := keys.NewVault(configDir)

	switch parsed.Command {
	case cli.CommandDoctor:
		return r.commandDoctor(store, settingsPath, vault)
	case cli.CommandDevices:
		return r.commandDevices(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	case cli.CommandStop:
		return r.forwardOrFail(ctx, ipc.CommandStop)
	case cli.CommandCancel:
		return r.forwardOrFail(ctx, ipc.CommandCancel)
	case cli.CommandToggle:
		return r.commandToggle(ctx, logger, store, vault)
	case cli.CommandServe:
		return r.commandServe(ctx, logger, store, vault, parsed.ListenAddr)
	default:
		fmt.Fprintf(r.Stderr, "error: unknown command %q\n", parsed.Command)
		return 2
	}
}

// newLogger opens the JSONL runtime logger, falling back to stderr text logs
// when the state directory is unavailable.
func (r *Runner) newLogger() (*slog.Logger, func()) {
	runtime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "warning: file logging unavailable: %v\n", err)
		handler := slog.NewTextHandler(r.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})
		return slog.New(handler), func() {}
	}
	return runtime.Logger, func() { _ = runtime.Close() }
}

func (r *Runner) commandDoctor(store *config.Store, settingsPath string, vault *keys.Vault) int {
	report := doctor.Run(store.Get(), settingsPath, vault, output.DefaultCommands())
	fmt.Fprintln(r.Stdout, report.String())
	if !report.OK() {
		return 1
	}
	return 0
}

func (r *Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: list devices: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no input devices found")
		return 0
	}
	for _, device := range devices {
		fmt.Fprintf(r.Stdout, "%s\t%s\n", device.ID, device.Description)
	}
	return 0
}

func (r *Runner) commandStatus(ctx context.Context) int {
	resp, ok := r.tryForward(ctx, ipc.CommandStatus)
	if !ok {
		fmt.Fprintln(r.Stdout, "idle (no active session)")
		return 0
	}
	fmt.Fprintln(r.Stdout, resp.State)
	return 0
}

// forwardOrFail requires a running owner; without one the command has nothing
// to act on.
func (r *Runner) forwardOrFail(ctx context.Context, command string) int {
	resp, ok := r.tryForward(ctx, command)
	if !ok {
		fmt.Fprintf(r.Stderr, "error: no active dicto session\n")
		return 1
	}
	if !resp.OK {
		fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
		return 1
	}
	fmt.Fprintln(r.Stdout, resp.Message)
	return 0
}

// tryForward sends a command to the socket owner when one is listening.
func (r *Runner) tryForward(ctx context.Context, command string) (ipc.Response, bool) {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		return ipc.Response{}, false
	}

	resp, err := ipc.SendCommand(ctx, socketPath, command, forwardTimeout)
	if err != nil {
		return ipc.Response{}, false
	}
	return resp, true
}

// commandToggle forwards to a running owner; otherwise it becomes the owner
// and runs one complete session lifecycle in the foreground.
func (r *Runner) commandToggle(ctx context.Context, logger *slog.Logger, store *config.Store, vault *keys.Vault) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, forwardTimeout, 2, nil)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		resp, sendErr := ipc.SendCommand(ctx, socketPath, ipc.CommandToggle, forwardTimeout)
		if sendErr != nil {
			fmt.Fprintf(r.Stderr, "error: forward toggle: %v\n", sendErr)
			return 1
		}
		if !resp.OK {
			fmt.Fprintf(r.Stderr, "error: %s\n", resp.Error)
			return 1
		}
		fmt.Fprintln(r.Stdout, resp.Message)
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: acquire socket: %v\n", err)
		return 1
	}
	defer os.Remove(socketPath)

	controller := session.NewController(
		logger,
		r.newTranscriber(logger, store, vault),
		output.NewCommitter(store, output.DefaultCommands(), logger),
		nil,
	)

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	go func() { _ = ipc.Serve(serveCtx, listener, controller) }()

	result := controller.Run(ctx)
	if result.Err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", result.Err)
		return 1
	}
	if result.Cancelled {
		fmt.Fprintln(r.Stdout, "cancelled")
		return 0
	}
	fmt.Fprintln(r.Stdout, result.Transcript)
	return 0
}

// commandServe runs the daemon: socket ownership, the HTTP command surface,
// the websocket event feed, and the serialized session loop.
func (r *Runner) commandServe(ctx context.Context, logger *slog.Logger, store *config.Store, vault *keys.Vault, listenAddr string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, forwardTimeout, 2, nil)
	if errors.Is(err, ipc.ErrAlreadyRunning) {
		fmt.Fprintln(r.Stderr, "error: dicto session already running")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: acquire socket: %v\n", err)
		return 1
	}
	defer os.Remove(socketPath)

	hist := r.openHistory(ctx, store, logger)
	if hist != nil {
		defer hist.Close()
	}

	hub := api.NewHub(logger)
	defer hub.Close()
	store.Subscribe(hub.SettingsChanged)

	committer := output.NewCommitter(store, output.DefaultCommands(), logger)
	controller := session.NewController(
		logger,
		r.newTranscriber(logger, store, vault),
		committer,
		hub,
	)
	controller.SetResultHandler(recordResult(store, hist, logger))

	go func() { _ = ipc.Serve(ctx, listener, controller) }()

	server := api.NewServer(store, vault, controller, hist, hub, logger)
	serveErrs := make(chan error, 1)
	go func() { serveErrs <- server.ListenAndServe(ctx, listenAddr) }()

	logger.Info("dicto serving", "socket", socketPath, "http", listenAddr)
	fmt.Fprintf(r.Stdout, "dicto serving on %s (socket %s)\n", listenAddr, socketPath)

	loopDone := make(chan struct{})
	go func() {
		controller.RunLoop(ctx)
		close(loopDone)
	}()

	exit := 0
	select {
	case <-ctx.Done():
		<-loopDone
	case err := <-serveErrs:
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: http server: %v\n", err)
			exit = 1
		}
	}

	store.Flush()
	return exit
}

// newTranscriber assembles the capture/STT/formatting pipeline with key
// lookups that prefer environment variables over the vault.
func (r *Runner) newTranscriber(logger *slog.Logger, store *config.Store, vault *keys.Vault) *pipeline.Transcriber {
	groqClient := groq.NewClient(groq.Config{}, keyLookup(vault, "GROQ_API_KEY", func(k keys.Keys) string {
		return k.GroqAPIKey
	}))
	geminiClient := gemini.NewClient(gemini.Config{}, keyLookup(vault, "GEMINI_API_KEY", func(k keys.Keys) string {
		return k.GeminiAPIKey
	}))
	return pipeline.NewTranscriber(store, groqClient, geminiClient, logger)
}

// keyLookup resolves a credential at call time: environment first, then the
// vault. Resolution happens per call so key updates apply without restart.
func keyLookup(vault *keys.Vault, envName string, pick func(keys.Keys) string) func() string {
	return func() string {
		if value := strings.TrimSpace(os.Getenv(envName)); value != "" {
			return value
		}
		stored, err := vault.Load()
		if err != nil {
			return ""
		}
		return pick(stored)
	}
}

// openHistory opens the session history database and applies the retention
// window. The daemon runs without history when the database cannot open.
func (r *Runner) openHistory(ctx context.Context, store *config.Store, logger *slog.Logger) *history.Store {
	stateDir, err := config.StateDir()
	if err != nil {
		logger.Warn("history disabled; no state dir", "error", err.Error())
		return nil
	}

	hist, err := history.Open(history.DefaultDBPath(stateDir))
	if err != nil {
		logger.Warn("history disabled; open failed", "error", err.Error())
		return nil
	}

	retention := store.Get().AutoDeleteLogsAfterDays
	pruneCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if removed, err := hist.Prune(pruneCtx, retention); err != nil {
		logger.Warn("history prune failed", "error", err.Error())
	} else if removed > 0 {
		logger.Info("history pruned", "removed", removed, "retentionDays", retention)
	}

	return hist
}

// recordResult persists finished sessions. noSave suppresses transcript
// content; with usage stats also disabled nothing is written at all.
func recordResult(store *config.Store, hist *history.Store, logger *slog.Logger) func(session.Result) {
	return func(result session.Result) {
		if hist == nil {
			return
		}

		settings := store.Get()
		if settings.NoSave && !settings.EnableUsageStats {
			return
		}

		rec := history.Record{
			ID:              result.ID,
			StartedAt:       result.StartedAt,
			FinishedAt:      result.FinishedAt,
			State:           string(result.State),
			AudioDevice:     result.AudioDevice,
			BytesCaptured:   result.BytesCaptured,
			TranscriptChars: len([]rune(result.Transcript)),
		}
		if !settings.NoSave {
			rec.Transcript = result.Transcript
		}
		if result.Err != nil {
			rec.Error = result.Err.Error()
		}

		insertCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hist.Insert(insertCtx, rec); err != nil {
			logger.Warn("record session failed", "error", err.Error(), "session", result.ID)
		}
	}
}
