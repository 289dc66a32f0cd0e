package logboot

const (
	// DefaultFilterEnv is the environment variable consulted for the severity filter.
	DefaultFilterEnv = "LOG_LEVEL"
	// DefaultFilter applies when the environment does not supply a usable filter.
	DefaultFilter = "info"
	// DefaultBufferSize is the number of records the non-blocking writer holds before dropping.
	DefaultBufferSize = 10000
	// DefaultMaxSizeMB caps a single period file before lumberjack rolls it into a backup.
	DefaultMaxSizeMB = 100

	// ModuleFieldName is the field carrying the module path of module-scoped loggers.
	ModuleFieldName = "module"

	emptyString = ""
)

const (
	errMsgNoSink           = "no output sink enabled"
	errMsgConfigInvalid    = "logging configuration is invalid"
	errMsgAlreadyInstalled = "logging already initialized for this process"
	errMsgReporterTwice    = "error reporter already installed"
)
