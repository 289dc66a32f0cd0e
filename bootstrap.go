package logboot

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.uber.org/atomic"
)

// Install gate. installMu is held for the whole of InitializeWithOptions so
// that concurrent first-time callers serialize and exactly one can succeed;
// a failed attempt leaves the gate open for a later one.
var (
	installMu    sync.Mutex
	installed    atomic.Bool
	activeFilter atomic.Pointer[Filter]
)

// Initialize configures process-wide logging with a rotating file under
// logsDir, an optional stderr console layer and an optional panic reporter.
//
// The returned Guard owns the file writer's flush worker and must be kept
// until the process stops logging. Initialize succeeds at most once per
// process; later calls return ErrAlreadyInitialized and change nothing.
func Initialize(logsDir, filenamePrefix, filenameSuffix string, rotation Rotation, enableConsoleLayer, installErrorReporter bool) (*Guard, error) {
	opts := DefaultOptions()
	opts.LogsDir = logsDir
	opts.FilenamePrefix = filenamePrefix
	opts.FilenameSuffix = filenameSuffix
	opts.Rotation = rotation
	opts.EnableConsole = enableConsoleLayer
	opts.InstallReporter = installErrorReporter
	return InitializeWithOptions(opts)
}

// InitializeWithOptions is Initialize with every knob exposed.
//
// Nothing process-wide is touched until every fallible step has succeeded;
// on failure any file or worker already created is released.
func InitializeWithOptions(opts Options) (*Guard, error) {
	const op Op = "logboot.Initialize"

	installMu.Lock()
	defer installMu.Unlock()

	if installed.Load() {
		return nil, newError(KindAlreadyInitialized, op, errMsgAlreadyInstalled, nil)
	}
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}

	// Filter and time source.
	filter := filterFromEnv(opts.FilterEnv, opts.DefaultFilter)
	ts, err := ResolveTimeSource(opts.Clock)
	if err != nil {
		return nil, err
	}

	// Layers. The error-context layer is always first; file precedes console.
	layers := []layer{errorContextLayer()}

	var console *layer
	if opts.EnableConsole {
		l := consoleLayer(ts, opts.ConsoleOutput)
		console = &l
	}

	guard := &Guard{}
	var file *RollingFile
	if !opts.DisableFileLayer {
		if err := os.MkdirAll(opts.LogsDir, os.ModePerm); err != nil {
			return nil, newError(KindDirectoryCreation, op, "failed to create logs directory", err)
		}

		file, err = NewRollingFile(opts.LogsDir, opts.FilenamePrefix, opts.FilenameSuffix, opts.Rotation,
			WithClock(opts.Clock),
			WithLocation(ts.Location()),
			WithMaxSize(opts.MaxSizeMB),
			WithMaxBackups(opts.MaxBackups),
			WithCompress(opts.Compress),
		)
		if err != nil {
			return nil, err
		}

		var w io.Writer
		w, guard = newNonBlocking(file, opts.BufferSize)
		layers = append(layers, fileLayer(ts, w))
	}
	if console != nil {
		layers = append(layers, *console)
	}

	if opts.InstallReporter {
		ro := ReporterOptions{}
		if opts.CrashFile != emptyString && opts.LogsDir != emptyString {
			ro.CrashFile = filepath.Join(opts.LogsDir, opts.CrashFile)
		}
		if err := installReporter(ro, ts); err != nil {
			_ = guard.Close()
			return nil, err
		}
	}

	// Compose and install.
	logger := compose(filter, layers)
	install(logger, filter, ts, layers)
	installed.Store(true)

	ev := logger.Info().
		Str("filter", filter.String()).
		Str("offset", ts.Location().String()).
		Bool("console", opts.EnableConsole).
		Bool("reporter", opts.InstallReporter)
	if file != nil {
		ev = ev.Str("file", file.CurrentPath()).Stringer("rotation", opts.Rotation)
	}
	ev.Msg("logging initialized")

	return guard, nil
}

// install publishes logger as the process-wide logger. Only called with installMu held.
func install(logger zerolog.Logger, filter Filter, ts TimeSource, layers []layer) {
	for _, l := range layers {
		if l.install != nil {
			l.install()
		}
	}

	// Per-logger levels do the filtering; the global gate stays fully open.
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.TimestampFunc = ts.Now

	log.Logger = logger
	zerolog.DefaultContextLogger = &logger

	stdlog.SetFlags(0)
	stdlog.SetOutput(stdlibWriter{logger: logger})

	activeFilter.Store(&filter)
}

// stdlibCallerSkip skips stdlibWriter.Write, log.(*Logger).output and the
// log.Print* entry point so Caller reports the line that called the stdlib logger.
const stdlibCallerSkip = 3

// stdlibWriter receives the output of the standard library's log package and
// re-emits each line at info level, so the filter applies to it.
type stdlibWriter struct {
	logger zerolog.Logger
}

func (w stdlibWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.logger.Info().
		CallerSkipFrame(stdlibCallerSkip).
		Msg(strings.TrimSuffix(string(p), "\n"))
	return n, nil
}

// Installed reports whether Initialize has succeeded in this process.
func Installed() bool {
	return installed.Load()
}

// ActiveFilter returns the filter resolved by Initialize, or the filter the
// environment would yield if logging is not initialized yet.
func ActiveFilter() Filter {
	if f := activeFilter.Load(); f != nil {
		return *f
	}
	return FilterFromEnv(DefaultFilterEnv)
}

// Module returns a child of the global logger tagged with the module path,
// whose level comes from the module-scoped directives of the filter.
func Module(path string) zerolog.Logger {
	l := log.Logger.With().Str(ModuleFieldName, path).Logger()
	f := activeFilter.Load()
	if f == nil {
		return l
	}
	return l.Level(f.LevelFor(path))
}

// Run initializes logging, runs fn and releases the guard on every way out
// of fn, including a panic, which is reported before it is re-raised.
func Run(opts Options, fn func() error) (err error) {
	guard, err := InitializeWithOptions(opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := guard.Close(); err == nil {
			err = cerr
		}
	}()
	defer Recover()
	return fn()
}
