// Package logging provides the structured logger shared by cmd/lispc and
// cmd/lispvm, grounded on the teacher's logs package: a process-wide
// slog.LevelVar controlled by -log-* flags, fanned out with slog-multi to a
// stderr text handler and, when a journald socket is reachable, a journald
// handler too — always both, matching SPEC_FULL.md's ambient-stack section
// rather than the teacher's cgroup-gated "journal or stderr, not both"
// original (the teacher drops its stderr handler under systemd on the
// assumption systemd already recaptures stdout/stderr into the journal;
// cellvm has no such assumption to make, so it logs both unconditionally).
package logging

import (
	"log/slog"
	"os"
	"strings"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"

	"github.com/dmitryduka/cellvm/internal/cliflags"
)

var level = new(slog.LevelVar)

func init() {
	cliflags.Define("-log-debug", cliflags.Trigger(func() {
		level.Set(slog.LevelDebug)
	}).Desc("set log level to debug"))
	cliflags.Define("-log-info", cliflags.Trigger(func() {
		level.Set(slog.LevelInfo)
	}).Desc("set log level to info"))
	cliflags.Define("-log-warn", cliflags.Trigger(func() {
		level.Set(slog.LevelWarn)
	}).Desc("set log level to warn"))
	cliflags.Define("-log-error", cliflags.Trigger(func() {
		level.Set(slog.LevelError)
	}).Desc("set log level to error"))
}

// Logger is the shared handle every component logs through.
type Logger = *slog.Logger

// Writer is where the stderr text handler writes, provided by
// Module.Writer as os.Stderr; being an *os.File, it cannot be a buffer.
type Writer = *os.File

// Module provides Logger via dscope, following the teacher's zero-size
// provider-method pattern (see internal/wiring.Module for composition).
type Module struct{}

func (Module) Writer() Writer {
	return os.Stderr
}

// Logger builds the fanned-out handler: stderr text always, plus journald
// whenever a journal socket is reachable.
func (Module) Logger(writer Writer) Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(writer, &slog.HandlerOptions{Level: level}),
	}

	journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
		ReplaceGroup: toJournalKey,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			a.Key = toJournalKey(a.Key)
			return a
		},
	})
	if err == nil {
		handlers = append(handlers, journalHandler)
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

func toJournalKey(str string) string {
	str = strings.ToUpper(str)
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, str)
}
