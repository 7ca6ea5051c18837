package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rbright/pose/internal/cli"
	"github.com/rbright/pose/internal/config"
	"github.com/rbright/pose/internal/control"
	"github.com/rbright/pose/internal/doctor"
	"github.com/rbright/pose/internal/ipc"
	"github.com/rbright/pose/internal/logging"
	"github.com/rbright/pose/internal/shutdown"
	"github.com/rbright/pose/internal/store"
	"github.com/rbright/pose/internal/version"
	"github.com/rbright/pose/internal/web"
)

// acquireRetries bounds stale-socket reclaim attempts at startup.
const acquireRetries = 8

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("pose"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("pose"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	role := "server"
	if parsed.IsClient() || parsed.Command == cli.CommandDoctor {
		role = "client"
	}
	logRuntime, err := logging.New(role)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath, config.Overrides{
		Socket:   parsed.Socket,
		Database: parsed.Database,
		Port:     parsed.Port,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
		// client output stays limited to the rendered response
		if parsed.IsClient() {
			continue
		}
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"socket", cfgLoaded.Config.Socket,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus, cli.CommandStop, cli.CommandEcho, cli.CommandTest:
		return r.commandClient(ctx, parsed, cfgLoaded.Config, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandClient sends exactly one command and renders the one response.
func (r Runner) commandClient(ctx context.Context, parsed cli.Parsed, cfg config.Config, logger *slog.Logger) int {
	cmd, err := clientCommand(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	resp, err := ipc.Send(ctx, cfg.Socket, cmd, cfg.Control.ClientTimeout())
	if err != nil {
		logger.Info("client request failed", "command", cmd.String(), "error", err.Error())
		if ipc.IsNoServer(err) {
			fmt.Fprintln(r.Stderr, "error: no active server found")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	text, err := renderResponse(cmd, resp)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintln(r.Stdout, text)
	return 0
}

func clientCommand(parsed cli.Parsed) (ipc.Command, error) {
	switch parsed.Command {
	case cli.CommandStatus:
		return ipc.GetStatus(), nil
	case cli.CommandStop:
		return ipc.Stop(), nil
	case cli.CommandEcho:
		return ipc.Echo(parsed.Input), nil
	case cli.CommandTest:
		switch strings.ToLower(strings.TrimSpace(parsed.Input)) {
		case "db", "database":
			return ipc.DatabaseTest(), nil
		}
		return ipc.Command{}, fmt.Errorf("unknown test %q (available: db)", parsed.Input)
	default:
		return ipc.Command{}, fmt.Errorf("command %q is not a client command", parsed.Command)
	}
}

var expectedResponse = map[ipc.CommandKind]ipc.ResponseKind{
	ipc.CommandGetStatus:    ipc.ResponseStatus,
	ipc.CommandStop:         ipc.ResponseStoppingServer,
	ipc.CommandEcho:         ipc.ResponseEcho,
	ipc.CommandDatabaseTest: ipc.ResponseDatabaseTestResponse,
}

func renderResponse(cmd ipc.Command, resp ipc.Response) (string, error) {
	if want := expectedResponse[cmd.Kind]; resp.Kind != want {
		return "", fmt.Errorf("unexpected response %s to %s", resp, cmd)
	}
	switch resp.Kind {
	case ipc.ResponseStatus:
		return "Server Status: Active!", nil
	case ipc.ResponseStoppingServer:
		return "Stopping Server!", nil
	case ipc.ResponseEcho:
		return resp.Text, nil
	default:
		return fmt.Sprintf("Database benchmark complete in: %d ms", resp.ElapsedMS), nil
	}
}

// commandServe runs the server until a terminate event. The control socket
// file is removed exactly once, after every task has stopped.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	listener, err := ipc.Acquire(ctx, cfg.Socket, cfg.Control.ProbeTimeout(), acquireRetries, logger)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			logger.Warn("server already active", "socket", cfg.Socket)
			fmt.Fprintln(r.Stderr, "error: server is already active")
			return 1
		}
		logger.Error("acquire control socket failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	var releaseOnce sync.Once
	release := func() {
		releaseOnce.Do(func() {
			_ = listener.Close()
			if err := ipc.Release(cfg.Socket); err != nil {
				logger.Error("remove control socket failed", "error", err.Error())
			}
		})
	}
	defer release()

	db, err := store.Open(ctx, cfg.Database.Path, store.Config{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  cfg.Database.BusyTimeout(),
	})
	if err != nil {
		logger.Error("open database failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = db.Close() }()

	httpServer := web.New(web.Config{
		Addr:               cfg.HTTP.Addr,
		Port:               cfg.HTTP.Port,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
		ShutdownTimeout:    cfg.HTTP.ShutdownTimeout(),
	}, db, logger)
	if err := httpServer.Listen(); err != nil {
		logger.Error("http listen failed", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	// every task subscribes before any task can publish
	bus := shutdown.New()
	controlSub := bus.Subscribe()
	httpSub := bus.Subscribe()
	signalSub := bus.Subscribe()
	defer controlSub.Close()
	defer httpSub.Close()
	defer signalSub.Close()

	controlServer := ipc.NewServer(control.NewDispatcher(db, bus, logger), logger, cfg.Control.ReadTimeout())

	fmt.Fprintf(r.Stdout, "pose server listening (socket=%s, http=%s)\n", cfg.Socket, httpServer.Addr())
	logger.Info("server started", "socket", cfg.Socket, "http", httpServer.Addr().String(), "database", db.Path)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := controlServer.Serve(gctx, listener, controlSub); err != nil {
			_ = bus.Publish("control_failed")
			return err
		}
		return nil
	})
	g.Go(func() error {
		if err := httpServer.Serve(gctx, httpSub); err != nil {
			_ = bus.Publish("http_failed")
			return err
		}
		return nil
	})
	g.Go(func() error {
		shutdown.WatchSignals(gctx, bus, signalSub, logger, shutdown.TerminateSignals...)
		return nil
	})

	err = g.Wait()
	release()
	if err != nil {
		logger.Error("server stopped with error", "error", err.Error())
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logger.Info("server stopped", "shutdown_events", bus.Published())
	return 0
}
