// Package logging writes leveled, component-tagged log lines to one file per
// okaimono run. Every logger created during a run shares that file, so the
// auth, resolve and shop steps of a single invocation read in order.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	fileSuffix = "-okaimono.log"
	timeLayout = "2006-01-02 15:04:05.000"
)

type level string

const (
	levelDebug level = "DEBUG"
	levelInfo  level = "INFO"
	levelWarn  level = "WARN"
	levelError level = "ERROR"
)

// run is the per-process state: one session ID and one log directory.
type run struct {
	idOnce sync.Once
	id     string

	dirOnce  sync.Once
	override string
	dir      string
	dirErr   error
}

var current = &run{}

func (r *run) sessionID() string {
	r.idOnce.Do(func() { r.id = uuid.New().String() })
	return r.id
}

func (r *run) directory() (string, error) {
	r.dirOnce.Do(func() {
		dir := r.override
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				r.dirErr = fmt.Errorf("failed to get home directory: %w", err)
				return
			}
			dir = filepath.Join(home, ".okaimono", "logs")
		}
		if err := os.MkdirAll(dir, 0750); err != nil {
			r.dirErr = fmt.Errorf("failed to create log directory: %w", err)
			return
		}
		r.dir = dir
	})
	return r.dir, r.dirErr
}

// sink is a destination shared by a logger and everything derived from it.
type sink struct {
	mu     sync.Mutex
	out    *log.Logger
	path   string
	closer io.Closer
}

func (s *sink) println(line string) {
	s.mu.Lock()
	s.out.Println(line)
	s.mu.Unlock()
}

// Logger tags entries with a component name and writes them to a shared sink.
// Levels are labels only; nothing is filtered.
type Logger struct {
	component string
	session   string
	sink      *sink
	owner     bool
	closeOnce sync.Once
}

// SetLogDirectory makes subsequent loggers write under dir instead of
// ~/.okaimono/logs. It has no effect once the first logger has been created.
func SetLogDirectory(dir string) {
	current.override = dir
}

// NewLogger opens <log dir>/<session-id>-okaimono.log for appending and
// returns a logger tagged with component.
//
// When the directory or file is unusable the returned logger writes to stderr
// and the error reports why; callers may keep using the logger either way.
func NewLogger(component string) (*Logger, error) {
	dir, err := current.directory()
	if err != nil {
		return stderrLogger(component, err), err
	}

	id := current.sessionID()
	path := filepath.Join(dir, id+fileSuffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		err = fmt.Errorf("failed to open log file: %w", err)
		return stderrLogger(component, err), err
	}

	return &Logger{
		component: component,
		session:   id,
		sink:      &sink{out: log.New(f, "", 0), path: path, closer: f},
		owner:     true,
	}, nil
}

// Discard returns a logger that drops every entry.
func Discard(component string) *Logger {
	return &Logger{
		component: component,
		session:   current.sessionID(),
		sink:      &sink{out: log.New(io.Discard, "", 0)},
	}
}

func stderrLogger(component string, cause error) *Logger {
	l := &Logger{
		component: component,
		session:   current.sessionID(),
		sink:      &sink{out: log.New(os.Stderr, "", 0)},
	}
	l.Warnf("file logging unavailable, using stderr: %v", cause)
	return l
}

// Component returns a logger for another component writing to the same
// destination. Closing it leaves the destination open.
func (l *Logger) Component(component string) *Logger {
	return &Logger{component: component, session: l.session, sink: l.sink}
}

func (l *Logger) log(lvl level, format string, v ...interface{}) {
	l.sink.println(fmt.Sprintf("[%s] [%s] [%s] %s",
		time.Now().Format(timeLayout), l.component, lvl, fmt.Sprintf(format, v...)))
}

func (l *Logger) Debugf(format string, v ...interface{}) { l.log(levelDebug, format, v...) }

func (l *Logger) Infof(format string, v ...interface{}) { l.log(levelInfo, format, v...) }

func (l *Logger) Warnf(format string, v ...interface{}) { l.log(levelWarn, format, v...) }

func (l *Logger) Errorf(format string, v ...interface{}) { l.log(levelError, format, v...) }

func (l *Logger) SessionID() string { return l.session }

// LogPath is empty for stderr and discard loggers.
func (l *Logger) LogPath() string { return l.sink.path }

// Close releases the log file if this logger opened it. Repeated calls are
// no-ops.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.owner && l.sink.closer != nil {
			err = l.sink.closer.Close()
		}
	})
	return err
}

// GetSessionID returns the ID shared by every logger in this process.
func GetSessionID() string {
	return current.sessionID()
}
