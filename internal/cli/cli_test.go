package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNoArgsShowsHelp(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.Equal(t, CommandHelp, parsed.Command)
	require.True(t, parsed.ShowHelp)
	require.Equal(t, DefaultListenAddr, parsed.ListenAddr)
}

func TestParseCommands(t *testing.T) {
	cases := []struct {
		args []string
		want Command
	}{
		{args: []string{"toggle"}, want: CommandToggle},
		{args: []string{"stop"}, want: CommandStop},
		{args: []string{"cancel"}, want: CommandCancel},
		{args: []string{"status"}, want: CommandStatus},
		{args: []string{"devices"}, want: CommandDevices},
		{args: []string{"serve"}, want: CommandServe},
		{args: []string{"doctor"}, want: CommandDoctor},
		{args: []string{"version"}, want: CommandVersion},
	}

	for _, tc := range cases {
		parsed, err := Parse(tc.args)
		require.NoError(t, err)
		require.Equal(t, tc.want, parsed.Command)
		require.False(t, parsed.ShowHelp)
	}
}

func TestParseFlags(t *testing.T) {
	parsed, err := Parse([]string{"--settings", "/tmp/s.json", "--listen", "127.0.0.1:9999", "serve"})
	require.NoError(t, err)
	require.Equal(t, CommandServe, parsed.Command)
	require.Equal(t, "/tmp/s.json", parsed.SettingsPath)
	require.Equal(t, "127.0.0.1:9999", parsed.ListenAddr)
}

func TestParseVersionFlag(t *testing.T) {
	parsed, err := Parse([]string{"--version"})
	require.NoError(t, err)
	require.Equal(t, CommandVersion, parsed.Command)
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{name: "unknown command", args: []string{"bogus"}},
		{name: "unknown flag", args: []string{"--bogus"}},
		{name: "settings missing value", args: []string{"--settings"}},
		{name: "listen missing value", args: []string{"--listen"}},
		{name: "args after command", args: []string{"toggle", "extra"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.args)
			require.Error(t, err)
		})
	}
}

func TestHelpTextMentionsCommands(t *testing.T) {
	help := HelpText("dicto")
	for _, cmd := range []string{"toggle", "serve", "doctor", "devices", "--settings", "--listen"} {
		require.Contains(t, help, cmd)
	}
}
