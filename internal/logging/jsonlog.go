package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

type entry struct {
	Level   string         `json:"level"`
	Time    string         `json:"time"`
	Message string         `json:"message"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// Logger writes one JSON object per line.
type Logger struct {
	mu    sync.Mutex
	w     io.Writer
	debug bool
}

func New(w io.Writer, debug bool) *Logger {
	return &Logger{w: w, debug: debug}
}

var std = New(os.Stdout, false)

// SetDefault replaces the logger behind the package functions.
func SetDefault(l *Logger) { std = l }

// Default returns the logger behind the package functions.
func Default() *Logger { return std }

func (l *Logger) Log(level, msg string, fields map[string]any) {
	if level == "debug" && !l.debug {
		return
	}
	var out map[string]any
	if len(fields) > 0 {
		out = make(map[string]any, len(fields))
		for k, v := range fields {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			out[k] = v
		}
	}
	e := entry{Level: level, Time: time.Now().UTC().Format(time.RFC3339Nano), Message: msg, Fields: out}
	b, _ := json.Marshal(e)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, string(b))
}

// Printer adapts the logger to Printf-style writers, such as the ORM's
// query logger. Every line is logged at level.
func (l *Logger) Printer(level string) Printer { return printer{l: l, level: level} }

type Printer interface {
	Printf(format string, args ...any)
}

type printer struct {
	l     *Logger
	level string
}

func (p printer) Printf(format string, args ...any) {
	p.l.Log(p.level, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) DebugEnabled() bool { return l.debug }

func Log(level, msg string, fields map[string]any) { std.Log(level, msg, fields) }

func Debug(msg string, fields map[string]any) { Log("debug", msg, fields) }
func Info(msg string, fields map[string]any)  { Log("info", msg, fields) }
func Warn(msg string, fields map[string]any)  { Log("warn", msg, fields) }
func Error(msg string, fields map[string]any) { Log("error", msg, fields) }
