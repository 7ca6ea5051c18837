// Package control maps control-socket commands onto server capabilities.
package control

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rbright/pose/internal/ipc"
	"github.com/rbright/pose/internal/metrics"
	"github.com/rbright/pose/internal/shutdown"
)

// BenchmarkRows is the number of inserts issued by one DatabaseTest.
const BenchmarkRows = 10_000

const insertBenchmarkRow = "insert into benchmark_rows (key, userId) values (?1, ?2)"

var (
	ErrUnsupportedCommand = errors.New("unsupported command")
	ErrNoDatabase         = errors.New("no database configured")
)

// Execer is the statement capability the dispatcher needs; *sql.DB
// satisfies it.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Dispatcher implements ipc.Handler.
type Dispatcher struct {
	db        Execer
	publisher shutdown.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(db Execer, publisher shutdown.Publisher, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		db:        db,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Handle dispatches one command. Stop publishes its terminate event from
// Reply.After, so the response is queued before shutdown begins.
func (d *Dispatcher) Handle(ctx context.Context, cmd ipc.Command) (ipc.Reply, error) {
	switch cmd.Kind {
	case ipc.CommandGetStatus:
		return ipc.Reply{Response: ipc.StatusResponse()}, nil
	case ipc.CommandEcho:
		return ipc.Reply{Response: ipc.EchoResponse(cmd.Text)}, nil
	case ipc.CommandStop:
		d.logger.Info("stop command received")
		return ipc.Reply{Response: ipc.StoppingServerResponse(), After: d.publishStop}, nil
	case ipc.CommandDatabaseTest:
		elapsed, err := d.runBenchmark(ctx)
		if err != nil {
			return ipc.Reply{}, err
		}
		return ipc.Reply{Response: ipc.DatabaseTestResult(uint64(elapsed.Milliseconds()))}, nil
	default:
		return ipc.Reply{}, fmt.Errorf("%w: %q", ErrUnsupportedCommand, cmd.Kind)
	}
}

func (d *Dispatcher) publishStop() {
	if d.publisher == nil {
		d.logger.Error("publish shutdown failed", "error", "no publisher configured")
		return
	}
	if err := d.publisher.Publish("stop_command"); err != nil {
		d.logger.Error("publish shutdown failed", "error", err.Error())
	}
}

func (d *Dispatcher) runBenchmark(ctx context.Context) (time.Duration, error) {
	if d.db == nil {
		return 0, ErrNoDatabase
	}

	start := d.now()
	for i := 0; i < BenchmarkRows; i++ {
		if _, err := d.db.ExecContext(ctx, insertBenchmarkRow, uuid.NewString(), 0); err != nil {
			return 0, fmt.Errorf("database benchmark aborted at row %d: %w", i, err)
		}
	}
	elapsed := d.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	metrics.ObserveBenchmark(elapsed)
	d.logger.Info("database benchmark performed", "rows", BenchmarkRows, "elapsed_ms", elapsed.Milliseconds())
	return elapsed, nil
}
