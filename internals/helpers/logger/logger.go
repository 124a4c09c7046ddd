package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"

	"github.com/rollbar/rollbar-go"
)

var reporting atomic.Bool

// InitRollbar turns on forwarding of warnings and errors. An empty token keeps
// every logger local-only.
func InitRollbar(token, env, host string) {
	if token == "" {
		rollbar.SetEnabled(false)
		reporting.Store(false)
		return
	}
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetServerHost(host)
	rollbar.SetEnabled(true)
	reporting.Store(true)
	log.Printf("[LOGGER] rollbar reporting enabled env=%s", env)
}

// Flush waits for queued reports; call before exit.
func Flush() {
	if reporting.Load() {
		rollbar.Wait()
	}
}

// Logger prefixes every line with a component tag, e.g. "[QUIZ-SCHED]".
type Logger struct {
	tag string
	std *log.Logger
}

func New(tag string) *Logger {
	return NewWithWriter(tag, os.Stderr)
}

func NewWithWriter(tag string, w io.Writer) *Logger {
	return &Logger{tag: tag, std: log.New(w, "", log.LstdFlags)}
}

// Discard is a Logger that drops output, handy in tests.
func Discard() *Logger {
	return NewWithWriter("", io.Discard)
}

func (l *Logger) Tag() string { return l.tag }

func (l *Logger) Infof(format string, args ...interface{}) {
	l.std.Printf("[%s] "+format, append([]interface{}{l.tag}, args...)...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.std.Printf("[%s WARN] %s", l.tag, msg)
	if reporting.Load() {
		rollbar.Warning(fmt.Sprintf("[%s] %s", l.tag, msg))
	}
}

// Errorf logs and reports err with the formatted message as context.
func (l *Logger) Errorf(err error, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.std.Printf("[%s ERROR] %s: %v", l.tag, msg, err)
	if reporting.Load() && err != nil {
		rollbar.Error(err, map[string]interface{}{
			"component": l.tag,
			"message":   msg,
		})
	}
}
