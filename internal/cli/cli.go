package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type Command string

const (
	CommandServe   Command = "serve"
	CommandStatus  Command = "status"
	CommandStop    Command = "stop"
	CommandEcho    Command = "echo"
	CommandTest    Command = "test"
	CommandDoctor  Command = "doctor"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

// commandArity is the number of positional arguments each command takes.
var commandArity = map[Command]int{
	CommandServe:   0,
	CommandStatus:  0,
	CommandStop:    0,
	CommandEcho:    1,
	CommandTest:    1,
	CommandDoctor:  0,
	CommandVersion: 0,
	CommandHelp:    0,
}

type Parsed struct {
	Command    Command
	Input      string
	ConfigPath string
	Socket     *string
	Database   *string
	Port       *int
	ShowHelp   bool
}

// IsClient reports whether the command talks to a running server.
func (p Parsed) IsClient() bool {
	switch p.Command {
	case CommandStatus, CommandStop, CommandEcho, CommandTest:
		return true
	default:
		return false
	}
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandServe}
	explicit := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
			explicit = true
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
			explicit = true
		case "--config", "--socket", "--db", "--port":
			if explicit {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}
			i++
			if i >= len(args) {
				return Parsed{}, fmt.Errorf("%s requires a value", arg)
			}
			if err := parsed.setFlag(arg, args[i]); err != nil {
				return Parsed{}, err
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			if explicit {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
			}

			cmd := Command(arg)
			arity, ok := commandArity[cmd]
			if !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			rest := args[i+1:]
			if len(rest) < arity {
				return Parsed{}, fmt.Errorf("command %q requires an input argument", arg)
			}
			if len(rest) > arity {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}
			if arity == 1 {
				parsed.Input = rest[0]
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			return parsed, nil
		}
	}

	return parsed, nil
}

func (p *Parsed) setFlag(name, value string) error {
	switch name {
	case "--config":
		p.ConfigPath = value
	case "--socket":
		if strings.TrimSpace(value) == "" {
			return errors.New("--socket requires a non-empty path")
		}
		p.Socket = &value
	case "--db":
		if strings.TrimSpace(value) == "" {
			return errors.New("--db requires a non-empty path")
		}
		p.Database = &value
	case "--port":
		port, err := strconv.Atoi(value)
		if err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("--port must be an integer in 0..65535, got %q", value)
		}
		p.Port = &port
	}
	return nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] [command]

Commands:
  (none)        Run the server (HTTP front end and control socket)
  status        Query whether a server is active
  stop          Ask the active server to shut down
  echo INPUT    Send INPUT to the server and print the echoed text
  test INPUT    Run a server-side test; INPUT "db" runs the database benchmark
  doctor        Run configuration and environment checks
  version       Print version information
  help          Show this help

Flags:
  --socket PATH   Control socket path (default: /tmp/pose.socket)
  --db PATH       SQLite database path (default: ./pose.db)
  --port N        HTTP port (default: 80)
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/pose/config.yaml)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
