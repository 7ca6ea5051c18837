// Package doctor runs readiness diagnostics for config, the control socket, and the database.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rbright/pose/internal/config"
	"github.com/rbright/pose/internal/ipc"
	"github.com/rbright/pose/internal/store"
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

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkDirWritable("socket.dir", filepath.Dir(cfg.Config.Socket)))
	checks = append(checks, checkSocketOwner(ctx, cfg.Config.Socket, cfg.Config.Control.ProbeTimeout()))
	checks = append(checks, checkDatabase(ctx, cfg.Config.Database))
	return Report{Checks: checks}
}

func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not found; using defaults", cfg.Path)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkDirWritable verifies dir exists and accepts new files.
func checkDirWritable(name, dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if !info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}

	f, err := os.CreateTemp(dir, ".pose-doctor-*")
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}

// checkSocketOwner reports whether a live server, a stale file, or nothing
// occupies the control socket path. Only a non-socket file blocks startup.
func checkSocketOwner(ctx context.Context, path string, timeout time.Duration) Check {
	const name = "socket.owner"

	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("no server at %s", path)}
	}
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	if info.Mode()&os.ModeSocket == 0 {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is a stale non-socket file; serve will replace it", path)}
	}

	live, err := ipc.Probe(ctx, path, timeout)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("probe %s: %v", path, err)}
	}
	if live {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("server active at %s", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("stale socket at %s; serve will reclaim it", path)}
}

// checkDatabase opens the configured store and pings it. A missing file is
// reported by checking that its directory is writable.
func checkDatabase(ctx context.Context, cfg config.DatabaseConfig) Check {
	const name = "database"

	path := store.NormalizePath(cfg.Path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		dirCheck := checkDirWritable(name, filepath.Dir(path))
		if dirCheck.Pass {
			dirCheck.Message = fmt.Sprintf("%s will be created on first serve", path)
		}
		return dirCheck
	}

	db, err := store.Open(ctx, path, store.Config{MaxOpenConns: 1, BusyTimeout: cfg.BusyTimeout()})
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("ping %s: %v", path, err)}
	}
	rows, err := db.CountRows(ctx, store.BenchmarkTable)
	if err != nil {
		return Check{Name: name, Pass: false, Message: err.Error()}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s reachable (%d benchmark rows)", path, rows)}
}
