package logboot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// ReporterOptions configures InstallReporter.
type ReporterOptions struct {
	// CrashFile receives the runtime's fatal error output (unrecovered panics,
	// fatal errors) in addition to stderr. Empty disables it.
	CrashFile string
	// Output overrides stderr for rendered panic reports.
	Output io.Writer
}

type reporterState struct {
	mu        sync.Mutex
	installed atomic.Bool
	color     bool
	out       io.Writer
	crash     *os.File
	ts        TimeSource
}

var reporter reporterState

// probeTerminal checks that f is a usable stream and whether it renders ANSI color.
func probeTerminal(f *os.File) (bool, error) {
	if f == nil {
		return false, errors.New("stream is nil")
	}
	if _, err := f.Stat(); err != nil {
		return false, err
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false, nil
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
}

// InstallReporter installs the process-wide panic reporter used by Recover.
// It can be installed once per process.
func InstallReporter(opts ReporterOptions) error {
	return installReporter(opts, TimeSource{})
}

func installReporter(opts ReporterOptions, ts TimeSource) error {
	const op Op = "logboot.InstallReporter"

	reporter.mu.Lock()
	defer reporter.mu.Unlock()
	if reporter.installed.Load() {
		return newError(KindReporterInstall, op, errMsgReporterTwice, nil)
	}

	color, err := probeTerminal(os.Stderr)
	if err != nil {
		return newError(KindReporterInstall, op, "terminal capability probe failed", err)
	}
	out := opts.Output
	if out == nil {
		out = colorable.NewColorableStderr()
	} else {
		color = false
	}

	var crash *os.File
	if opts.CrashFile != emptyString {
		if err := os.MkdirAll(filepath.Dir(opts.CrashFile), os.ModePerm); err != nil {
			return newError(KindReporterInstall, op, "failed to create crash file directory", err)
		}
		crash, err = os.OpenFile(opts.CrashFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return newError(KindReporterInstall, op, "failed to open crash file", err)
		}
		if err := debug.SetCrashOutput(crash, debug.CrashOptions{}); err != nil {
			_ = crash.Close()
			return newError(KindReporterInstall, op, "failed to set crash output", err)
		}
	}

	debug.SetTraceback("all")

	reporter.color = color
	reporter.out = out
	reporter.crash = crash
	reporter.ts = ts
	reporter.installed.Store(true)
	return nil
}

// ReporterInstalled reports whether InstallReporter has succeeded in this process.
func ReporterInstalled() bool {
	return reporter.installed.Load()
}

// Recover renders a report for an in-flight panic and re-panics. Use it as
// the first deferred call in main and in long-lived goroutines:
//
//	defer logboot.Recover()
//
// Without an installed reporter it only re-panics.
func Recover() {
	r := recover()
	if r == nil {
		return
	}
	if reporter.installed.Load() {
		Report(r, debug.Stack())
	}
	panic(r)
}

// Report renders a panic value and its stack to the reporter's output and
// logs it at error level through the global logger.
func Report(value interface{}, stack []byte) {
	reporter.mu.Lock()
	out, color, ts := reporter.out, reporter.color, reporter.ts
	reporter.mu.Unlock()
	if out == nil {
		out = os.Stderr
	}

	var chain []string
	err, isErr := value.(error)
	if isErr {
		chain, _ = buildErrorChain(err)
	}

	var buf bytes.Buffer
	w := prettyWriter(&buf, !color, ts)
	w.FormatExtra = func(_ map[string]interface{}, b *bytes.Buffer) error {
		b.WriteString("\n\n  Stack backtrace:\n")
		b.Write(bytes.TrimRight(stack, "\n"))
		return nil
	}
	rl := zerolog.New(w)
	ev := rl.Error().Timestamp().Str("panic", fmt.Sprint(value))
	if len(chain) > 1 {
		ev = ev.Str("chain", joinChain(chain))
	}
	ev.Msg("The application panicked")
	_, _ = out.Write(buf.Bytes())

	log.Error().
		Str("panic", fmt.Sprint(value)).
		Str("chain", joinChain(chain)).
		Bytes("stack", stack).
		Msg("panic recovered")
}
