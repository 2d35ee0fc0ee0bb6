// Package paths resolves the daemon's run-state file locations: the
// PID file, the two trace log files (§6.4), and the per-listener Unix
// socket paths. A single [Resolver] built from configuration at
// startup is threaded through cmd/gstd instead of reading environment
// state ad hoc.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps the daemon's configured run/log directories to
// concrete file paths. It is nil-safe: calling a method on a nil
// *Resolver falls back to the current working directory, so callers
// that haven't wired a Resolver yet don't need extra guard checks.
type Resolver struct {
	runDir string
	logDir string
}

// New creates a Resolver from the daemon's run and log directories.
// Home directory tildes (~) are expanded at construction time.
func New(runDir, logDir string) *Resolver {
	return &Resolver{
		runDir: expandHome(runDir),
		logDir: expandHome(logDir),
	}
}

// PidFile returns the absolute path of the daemon's PID file.
func (r *Resolver) PidFile() string {
	return filepath.Join(r.runPath(), "gstd.pid")
}

// DaemonLog returns the absolute path of the daemon trace log (the
// log file for control-plane activity, distinct from the engine
// trace log).
func (r *Resolver) DaemonLog() string {
	return filepath.Join(r.logPath(), "gstd.log")
}

// EngineLog returns the absolute path of the pipeline engine trace
// log (§6.4: "one for daemon traces, one for engine traces").
func (r *Resolver) EngineLog() string {
	return filepath.Join(r.logPath(), "gstd-engine.log")
}

// UnixSocketPath returns the path for the n-th Unix-domain socket
// listener given a base path, following the "<base>_<n>" convention
// of §6.4.
func UnixSocketPath(base string, n int) string {
	return fmt.Sprintf("%s_%d", base, n)
}

// EnsureDirs creates the run and log directories (and their parents)
// if they do not already exist.
func (r *Resolver) EnsureDirs() error {
	for _, d := range []string{r.runPath(), r.logPath()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return fmt.Errorf("create directory %s: %w", d, err)
		}
	}
	return nil
}

// runPath returns the run directory, or the current directory if the
// Resolver is nil or its run directory is empty.
func (r *Resolver) runPath() string {
	if r == nil || r.runDir == "" {
		return "."
	}
	return r.runDir
}

// logPath returns the log directory, or the current directory if the
// Resolver is nil or its log directory is empty.
func (r *Resolver) logPath() string {
	if r == nil || r.logDir == "" {
		return "."
	}
	return r.logDir
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") || strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return filepath.Join(home, path[2:])
	}
	return path
}
