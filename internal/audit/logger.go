// Package audit appends one JSON line per security-relevant action to a local
// file, separate from the process log.
package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"linkup/linkup-shell/internal/auth"
)

// Event is the shape of one line in the audit file.
type Event struct {
	At      string `json:"at"`
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Target  string `json:"target,omitempty"`
	Outcome string `json:"outcome"`
	Detail  string `json:"detail,omitempty"`
}

// Logger opens its file on first use. An empty path disables it.
type Logger struct {
	path string

	mu   sync.Mutex
	file *os.File
	zl   *zap.Logger
}

func NewLogger(path string) *Logger {
	return &Logger{path: path}
}

func (l *Logger) Log(actor, action, target, outcome, detail string) error {
	if l == nil || l.path == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.openLocked(); err != nil {
		return err
	}

	fields := []zap.Field{zap.String("actor", actor)}
	if target != "" {
		fields = append(fields, zap.String("target", target))
	}
	fields = append(fields, zap.String("outcome", outcome))
	if detail != "" {
		fields = append(fields, zap.String("detail", detail))
	}
	l.zl.Info(action, fields...)
	if err := l.zl.Sync(); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}

func (l *Logger) openLocked() error {
	if l.zl != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	enc := zapcore.NewJSONEncoder(zapcore.EncoderConfig{
		TimeKey:    "at",
		MessageKey: "action",
		LineEnding: zapcore.DefaultLineEnding,
		EncodeTime: func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			pae.AppendString(t.UTC().Format(time.RFC3339))
		},
	})
	l.file = f
	l.zl = zap.New(zapcore.NewCore(enc, zapcore.AddSync(f), zapcore.InfoLevel))
	return nil
}

// Close releases the audit file. Later calls to Log reopen it.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file, l.zl = nil, nil
	return err
}

// SessionObserver records session transitions. Write failures are reported to
// onErr and otherwise ignored: auditing must not block a login or logout.
func (l *Logger) SessionObserver(onErr func(error)) auth.Observer {
	return func(e auth.Event) {
		actor := e.Username
		if actor == "" {
			actor = "anonymous"
		}
		if err := l.Log(actor, string(e.Kind), "", e.Outcome, e.Detail); err != nil && onErr != nil {
			onErr(err)
		}
	}
}
