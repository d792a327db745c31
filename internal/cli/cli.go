package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandToggle  Command = "toggle"
	CommandStop    Command = "stop"
	CommandCancel  Command = "cancel"
	CommandStatus  Command = "status"
	CommandDevices Command = "devices"
	CommandServe   Command = "serve"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandToggle:  {},
	CommandStop:    {},
	CommandCancel:  {},
	CommandStatus:  {},
	CommandDevices: {},
	CommandServe:   {},
	CommandDoctor:  {},
	CommandVersion: {},
	CommandHelp:    {},
}

// DefaultListenAddr is the loopback address the serve command binds.
const DefaultListenAddr = "127.0.0.1:4765"

type Parsed struct {
	Command      Command
	SettingsPath string
	ListenAddr   string
	ShowHelp     bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ListenAddr: DefaultListenAddr, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--settings":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--settings requires a path")
			}
			parsed.SettingsPath = args[i]
		case "--listen":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--listen requires an address")
			}
			parsed.ListenAddr = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
		}
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--settings PATH] [--listen ADDR] <command>

Commands:
  toggle    Start recording or stop+commit when already recording
  stop      Stop active recording and commit transcript
  cancel    Cancel active recording and discard transcript
  status    Print current state
  devices   List available input devices
  serve     Run the daemon with the HTTP command surface and event feed
  doctor    Run configuration and environment checks
  version   Print version information
  help      Show this help

Flags:
  --settings PATH  Settings file path (default: $XDG_CONFIG_HOME/dicto/settings.json)
  --listen ADDR    HTTP listen address for serve (default: %[2]s)
  -h, --help       Show help
  --version        Show version
`, binaryName, DefaultListenAddr)
}
