package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/pose/internal/fsm"
	"github.com/rbright/pose/internal/metrics"
	"github.com/rbright/pose/internal/shutdown"
)

// Accept retry bounds for transient failures such as EMFILE.
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// A Server serves exactly once.
var (
	ErrServerRunning = errors.New("control server already serving")
	ErrServerStopped = errors.New("control server stopped")
)

// Reply is a handler result. After, when set, runs once the response has
// been written (or the write attempt failed).
type Reply struct {
	Response Response
	After    func()
}

// Handler processes one control command.
type Handler interface {
	Handle(context.Context, Command) (Reply, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Command) (Reply, error)

func (f HandlerFunc) Handle(ctx context.Context, cmd Command) (Reply, error) {
	return f(ctx, cmd)
}

// Server runs the control accept loop. One command and one response per
// connection.
type Server struct {
	handler     Handler
	logger      *slog.Logger
	readTimeout time.Duration

	mu    sync.RWMutex
	state fsm.State
}

// NewServer builds a control server. readTimeout <= 0 disables the
// per-connection read deadline.
func NewServer(handler Handler, logger *slog.Logger, readTimeout time.Duration) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		handler:     handler,
		logger:      logger,
		readTimeout: readTimeout,
		state:       fsm.StateBinding,
	}
}

// State returns the listener lifecycle snapshot.
func (s *Server) State() fsm.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Server) transition(event fsm.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fsm.Transition(s.state, event)
	if err != nil {
		s.logger.Warn("control listener transition rejected", "error", err.Error())
		return
	}
	s.state = next
}

// Serve accepts clients on listener until sub observes a terminate event or
// ctx ends, then waits for in-flight connections to finish. It does not
// remove the socket file.
func (s *Server) Serve(ctx context.Context, listener net.Listener, sub *shutdown.Subscription) error {
	switch state := s.State(); {
	case fsm.Terminal(state):
		return ErrServerStopped
	case state != fsm.StateBinding:
		return fmt.Errorf("%w (state=%s)", ErrServerRunning, state)
	}

	var wg sync.WaitGroup
	s.transition(fsm.EventBound)
	s.logger.Info("control listener accepting", "addr", listener.Addr().String())

	var terminate <-chan struct{}
	if sub != nil {
		terminate = sub.Done()
	}

	stopped := make(chan struct{})
	closerDone := make(chan struct{})
	go func() {
		defer close(closerDone)
		select {
		case <-terminate:
		case <-ctx.Done():
		case <-stopped:
		}
		_ = listener.Close()
	}()
	defer func() {
		close(stopped)
		<-closerDone
	}()

	// in-flight commands outlive the accept loop
	connCtx := context.WithoutCancel(ctx)

	var retryDelay time.Duration
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil || isClosed(terminate) {
				s.transition(fsm.EventShutdown)
				s.logger.Info("control listener draining")
				wg.Wait()
				s.transition(fsm.EventDrained)
				s.logger.Info("control listener stopped")
				return nil
			}

			retryDelay = nextAcceptDelay(retryDelay)
			metrics.IncConnectionError("accept")
			s.logger.Warn("control accept failed; retrying",
				"error", err.Error(),
				"retry_in_ms", retryDelay.Milliseconds(),
			)
			timer := time.NewTimer(retryDelay)
			select {
			case <-timer.C:
			case <-terminate:
			case <-ctx.Done():
			}
			timer.Stop()
			continue
		}
		retryDelay = 0

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			s.serveConn(connCtx, c)
		}(conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	metrics.ControlConnectionsTotal.Inc()
	logger := s.logger.With("conn_id", uuid.NewString())

	if s.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(s.readTimeout)); err != nil {
			logger.Warn("set read deadline failed", "error", err.Error())
		}
	}

	cmd, err := ReadMessage[Command](conn)
	if errors.Is(err, ErrNoMessage) {
		// liveness probes connect and hang up without sending
		logger.Debug("control connection closed without a command")
		return
	}
	if err != nil {
		stage := "read"
		if errors.Is(err, ErrMalformedMessage) {
			stage = "decode"
		}
		metrics.IncConnectionError(stage)
		logger.Warn("control request rejected", "stage", stage, "error", err.Error())
		return
	}

	reply, err := s.handler.Handle(ctx, cmd)
	if err != nil {
		metrics.IncCommand(cmd.String(), "error")
		metrics.IncConnectionError("dispatch")
		logger.Error("control command failed", "command", cmd.String(), "error", err.Error())
		return
	}

	if err := WriteMessage(conn, reply.Response); err != nil {
		metrics.IncCommand(cmd.String(), "write_failed")
		metrics.IncConnectionError("write")
		logger.Warn("control response not delivered", "command", cmd.String(), "error", err.Error())
	} else {
		metrics.IncCommand(cmd.String(), "ok")
		logger.Info("control command handled", "command", cmd.String(), "response", reply.Response.String())
	}

	if reply.After != nil {
		reply.After()
	}
}

func nextAcceptDelay(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptDelay
	}
	return min(prev*2, maxAcceptDelay)
}

func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
