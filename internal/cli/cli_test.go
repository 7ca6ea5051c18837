package cli

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDefaultsToServe(t *testing.T) {
	parsed, err := Parse(nil)
	require.NoError(t, err)
	require.False(t, parsed.ShowHelp)
	require.Equal(t, CommandServe, parsed.Command)
	require.False(t, parsed.IsClient())
}

func TestParseServeOverrides(t *testing.T) {
	parsed, err := Parse([]string{"--socket", "/tmp/x.sock", "--db", "sqlite://./x.db", "--port", "8080"})
	require.NoError(t, err)
	require.Equal(t, CommandServe, parsed.Command)
	require.NotNil(t, parsed.Socket)
	require.Equal(t, "/tmp/x.sock", *parsed.Socket)
	require.NotNil(t, parsed.Database)
	require.Equal(t, "sqlite://./x.db", *parsed.Database)
	require.NotNil(t, parsed.Port)
	require.Equal(t, 8080, *parsed.Port)
}

func TestParseCommandWithConfig(t *testing.T) {
	parsed, err := Parse([]string{"--config", "/tmp/pose.yaml", "doctor"})
	require.NoError(t, err)
	require.Equal(t, CommandDoctor, parsed.Command)
	require.Equal(t, "/tmp/pose.yaml", parsed.ConfigPath)
	require.False(t, parsed.ShowHelp)
	require.Nil(t, parsed.Socket)
}

func TestParseArgMatrix(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantErr   string
		wantCmd   Command
		wantInput string
		wantHelp  bool
		client    bool
	}{
		{name: "help short flag", args: []string{"-h"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help long flag", args: []string{"--help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "help command", args: []string{"help"}, wantCmd: CommandHelp, wantHelp: true},
		{name: "version flag", args: []string{"--version"}, wantCmd: CommandVersion},
		{name: "status", args: []string{"status"}, wantCmd: CommandStatus, client: true},
		{name: "stop with socket", args: []string{"--socket", "/tmp/a", "stop"}, wantCmd: CommandStop, client: true},
		{name: "echo input", args: []string{"echo", "foo"}, wantCmd: CommandEcho, wantInput: "foo", client: true},
		{name: "echo empty input", args: []string{"echo", ""}, wantCmd: CommandEcho, wantInput: "", client: true},
		{name: "test db", args: []string{"test", "db"}, wantCmd: CommandTest, wantInput: "db", client: true},
		{name: "explicit serve", args: []string{"serve"}, wantCmd: CommandServe},
		{name: "echo missing input", args: []string{"echo"}, wantErr: "requires an input argument"},
		{name: "test missing input", args: []string{"test"}, wantErr: "requires an input argument"},
		{name: "flag after command", args: []string{"status", "--config", "/tmp/cfg"}, wantErr: "unexpected arguments after command"},
		{name: "missing config path", args: []string{"--config"}, wantErr: "requires a value"},
		{name: "missing socket path", args: []string{"--socket"}, wantErr: "requires a value"},
		{name: "empty socket path", args: []string{"--socket", " "}, wantErr: "non-empty path"},
		{name: "bad port", args: []string{"--port", "eighty"}, wantErr: "--port must be an integer"},
		{name: "port out of range", args: []string{"--port", "70000"}, wantErr: "--port must be an integer"},
		{name: "unknown flag", args: []string{"--bogus"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"bogus"}, wantErr: "unknown command"},
		{name: "extra args after command", args: []string{"doctor", "extra"}, wantErr: "unexpected arguments"},
		{name: "extra args after echo", args: []string{"echo", "a", "b"}, wantErr: "unexpected arguments"},
		{name: "command after version flag", args: []string{"--version", "status"}, wantErr: "unexpected arguments"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			parsed, err := Parse(tc.args)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.wantCmd, parsed.Command)
			require.Equal(t, tc.wantInput, parsed.Input)
			require.Equal(t, tc.wantHelp, parsed.ShowHelp)
			require.Equal(t, tc.client, parsed.IsClient())
		})
	}
}

func TestHelpTextListsCommandsAndFlags(t *testing.T) {
	help := HelpText("pose")
	for _, want := range []string{"pose [flags] [command]", "status", "stop", "echo INPUT", "test INPUT", "--socket PATH", "--db PATH", "--port N"} {
		require.Contains(t, help, want)
	}
}
