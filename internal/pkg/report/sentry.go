// Package report forwards unexpected errors to Sentry. Every function is a
// no-op until Setup has been called with a non-empty DSN.
package report

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

var enabled atomic.Bool

// Setup initialises the Sentry client and tags the global scope with the
// service and host. An empty dsn leaves reporting disabled.
func Setup(dsn, env, service string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: env,
		ServerName:  service,
	}); err != nil {
		return fmt.Errorf("sentry init: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", service)
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", map[string]interface{}{
			"hostname": hostname(),
		})
	})
	enabled.Store(true)
	return nil
}

// Enabled reports whether Setup configured a DSN.
func Enabled() bool {
	return enabled.Load()
}

// Flush waits up to two seconds for buffered events.
func Flush() {
	if enabled.Load() {
		sentry.Flush(2 * time.Second)
	}
}

// Options carries optional tags and context for a single report.
type Options struct {
	Tags  map[string]string
	Extra map[string]interface{}
	Level sentry.Level
}

// Error reports err at error level.
func Error(err error) {
	ErrorWithOptions(err, Options{})
}

// ErrorWithOptions reports err with extra tags and context.
func ErrorWithOptions(err error, opts Options) {
	if err == nil || !enabled.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range opts.Tags {
			scope.SetTag(k, v)
		}
		if opts.Extra != nil {
			scope.SetContext("extra", opts.Extra)
		}
		level := opts.Level
		if level == "" {
			level = sentry.LevelError
		}
		scope.SetLevel(level)
		sentry.CaptureException(err)
	})
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
