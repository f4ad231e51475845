package log

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"driftline.space/internal/sim/activation"
	"driftline.space/internal/sim/session"
)

// stream appends JSON lines of T to <dir>/<name>-<YYYY-MM-DD>.jsonl.zst,
// starting a new file on each UTC date. Every append is flushed.
type stream[T any] struct {
	dir  string
	name string
	now  func() time.Time

	mu   sync.Mutex
	date string
	f    *os.File
	zw   *zstd.Encoder
}

func newStream[T any](dataDir, name string) *stream[T] {
	return &stream[T]{dir: filepath.Join(dataDir, name), name: name, now: time.Now}
}

func (s *stream[T]) append(v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s log: %w", s.name, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if date := s.now().UTC().Format(time.DateOnly); date != s.date {
		if err := s.open(date); err != nil {
			return fmt.Errorf("%s log: %w", s.name, err)
		}
	}
	if _, err := s.zw.Write(append(b, '\n')); err != nil {
		return err
	}
	return s.zw.Flush()
}

func (s *stream[T]) open(date string) error {
	if err := s.release(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(s.dir, s.name+"-"+date+".jsonl.zst")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	zw, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	s.f, s.zw, s.date = f, zw, date
	return nil
}

func (s *stream[T]) release() error {
	if s.f == nil {
		return nil
	}
	err := errors.Join(s.zw.Close(), s.f.Close())
	s.f, s.zw, s.date = nil, nil, ""
	return err
}

func (s *stream[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.release()
}

// DayLogger writes one entry per simulated day under <dataDir>/days.
type DayLogger struct{ *stream[session.DayEntry] }

func NewDayLogger(dataDir string) *DayLogger {
	return &DayLogger{newStream[session.DayEntry](dataDir, "days")}
}

func (l *DayLogger) WriteDay(v session.DayEntry) error { return l.append(v) }

// AuditLogger writes the sector activation audit trail under <dataDir>/audit.
type AuditLogger struct{ *stream[activation.AuditEntry] }

func NewAuditLogger(dataDir string) *AuditLogger {
	return &AuditLogger{newStream[activation.AuditEntry](dataDir, "audit")}
}

func (l *AuditLogger) WriteAudit(v activation.AuditEntry) error { return l.append(v) }
