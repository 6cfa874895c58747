// Package logging 构造一次运行使用的 slog logger，并把决策行同时写到控制台与日志文件。
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileTimeLayout 是日志文件名里的时间格式：simtagger_2006-01-02_15-04-05.log
const FileTimeLayout = "2006-01-02_15-04-05"

// Options 描述一次运行的日志输出。
type Options struct {
	Level  string // debug/info/warn/error；空串为 info
	Format string // text/json；只影响结构化日志，不影响决策行

	// Stdout 接收决策行（--json 时传 nil，保持 stdout 只有 JSON）。
	Stdout io.Writer
	// Stderr 接收结构化日志。
	Stderr io.Writer

	// Dir 非空时在其中创建带时间戳的日志文件；目录不存在会自动创建。
	Dir string
	Now func() time.Time
}

// Session 是一次运行的日志句柄。
type Session struct {
	Logger *slog.Logger
	// Lines 写入的每一行都会同时出现在 Stdout 与日志文件中。
	Lines    io.Writer
	FilePath string

	file *os.File
}

// Open 按 Options 打开日志；调用方负责 Close。
func Open(opts Options) (*Session, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "text"
	}
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("log format: 不支持 %q", opts.Format)
	}

	s := &Session{}
	var handlers []slog.Handler
	var lines []io.Writer

	if opts.Stderr != nil {
		handlers = append(handlers, newHandler(opts.Stderr, format, level))
	}
	if opts.Stdout != nil {
		lines = append(lines, opts.Stdout)
	}

	if strings.TrimSpace(opts.Dir) != "" {
		now := time.Now
		if opts.Now != nil {
			now = opts.Now
		}
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败：%w", err)
		}
		p := filepath.Join(opts.Dir, "simtagger_"+now().Format(FileTimeLayout)+".log")
		f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("打开日志文件失败：%w", err)
		}
		s.file = f
		s.FilePath = p
		handlers = append(handlers, newHandler(f, format, level))
		lines = append(lines, f)
	}

	s.Logger = slog.New(newFanoutHandler(handlers...))
	switch len(lines) {
	case 0:
		s.Lines = io.Discard
	case 1:
		s.Lines = lines[0]
	default:
		s.Lines = io.MultiWriter(lines...)
	}
	return s, nil
}

// Nop 返回丢弃一切输出的 Session（测试与库调用使用）。
func Nop() *Session {
	return &Session{Logger: slog.New(slog.DiscardHandler), Lines: io.Discard}
}

// Printf 输出一行决策行（自动补换行）。
func (s *Session) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, _ = io.WriteString(s.Lines, line)
}

func (s *Session) Close() error {
	if s == nil || s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// ParseLevel 解析日志级别；空串视为 info。
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log level: 不支持 %q", level)
	}
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if attr.Key == slog.TimeKey && attr.Value.Kind() == slog.KindTime && len(groups) == 0 {
				attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(time.RFC3339))
			}
			return attr
		},
	}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// fanoutHandler 把同一条记录分发给多个 handler（控制台 + 日志文件）。
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) slog.Handler {
	switch len(handlers) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return handlers[0]
	}
	return &fanoutHandler{handlers: append([]slog.Handler(nil), handlers...)}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: next}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &fanoutHandler{handlers: next}
}
