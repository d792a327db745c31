// Package doctor runs runtime readiness diagnostics for settings, tools,
// audio, and backend credentials.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"dicto/internal/audio"
	"dicto/internal/config"
	"dicto/internal/keys"
	"dicto/internal/output"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/settings/credential checks.
func Run(settings config.Settings, settingsPath string, vault *keys.Vault, commands output.Commands) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "settings",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", settingsPath),
	})

	checks = append(checks, checkEnv("XDG_SESSION_TYPE", func(v string) bool {
		return strings.EqualFold(strings.TrimSpace(v), "wayland")
	}, "session type is wayland", "expected XDG_SESSION_TYPE=wayland"))

	checks = append(checks, checkCommand(commands.ClipboardSet, "clipboard_cmd"))
	checks = append(checks, checkCommand(commands.Paste, "paste_cmd"))

	checks = append(checks, checkAudioSelection())
	checks = append(checks, checkCredentials(settings, vault))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection() Check {
	selection, err := audio.SelectDevice(context.Background(), "default", "default")
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkCredentials reports transcription/formatting key availability against
// the current settings posture.
func checkCredentials(settings config.Settings, vault *keys.Vault) Check {
	if settings.OfflineMode {
		return Check{Name: "credentials", Pass: true, Message: "offline mode; backend calls disabled"}
	}

	presence := keys.Presence{}
	if vault != nil {
		presence = vault.Presence()
	}

	hasGroq := presence.HasGroq || strings.TrimSpace(os.Getenv("GROQ_API_KEY")) != ""
	hasGemini := presence.HasGemini || strings.TrimSpace(os.Getenv("GEMINI_API_KEY")) != ""

	if !hasGroq {
		return Check{Name: "credentials", Pass: false, Message: "no Groq API key in vault or GROQ_API_KEY"}
	}
	if settings.EnableGemini && !hasGemini {
		return Check{Name: "credentials", Pass: false, Message: "formatting enabled but no Gemini API key in vault or GEMINI_API_KEY"}
	}
	return Check{Name: "credentials", Pass: true, Message: "backend credentials available"}
}
