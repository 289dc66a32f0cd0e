package logboot

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Options is the full configuration accepted by InitializeWithOptions.
// The zero value of every boolean keeps the behavior of Initialize.
type Options struct {
	LogsDir        string   `koanf:"logs_dir" validate:"required_unless=DisableFileLayer true"`
	FilenamePrefix string   `koanf:"filename_prefix"`
	FilenameSuffix string   `koanf:"filename_suffix"`
	Rotation       Rotation `koanf:"-"`

	EnableConsole    bool `koanf:"enable_console"`
	DisableFileLayer bool `koanf:"disable_file_layer"`
	InstallReporter  bool `koanf:"install_reporter"`

	// FilterEnv names the environment variable holding the severity filter.
	FilterEnv string `koanf:"filter_env"`
	// DefaultFilter applies when FilterEnv is unset or unparsable.
	DefaultFilter string `koanf:"default_filter"`

	BufferSize int  `koanf:"buffer_size" validate:"gte=0"`
	MaxSizeMB  int  `koanf:"max_size_mb" validate:"gte=0,lte=10240"`
	MaxBackups int  `koanf:"max_backups" validate:"gte=0,lte=1024"`
	Compress   bool `koanf:"compress"`

	// CrashFile, relative to LogsDir, receives fatal runtime output when the
	// reporter is installed. Empty disables it.
	CrashFile string `koanf:"crash_file" validate:"omitempty,excludesall=/\\"`

	// ConsoleOutput replaces stderr for the console layer.
	ConsoleOutput io.Writer `koanf:"-"`
	// Clock replaces time.Now for timestamps and rotation.
	Clock func() time.Time `koanf:"-"`
}

// DefaultOptions returns file-only, daily rotated logging into ./logs.
func DefaultOptions() Options {
	return Options{
		LogsDir:        "logs",
		FilenamePrefix: "app",
		FilenameSuffix: "log",
		Rotation:       RotationDaily,
		FilterEnv:      DefaultFilterEnv,
		DefaultFilter:  DefaultFilter,
		BufferSize:     DefaultBufferSize,
		MaxSizeMB:      DefaultMaxSizeMB,
	}
}

// fileOptions mirrors the keys of Options that need conversion after decoding.
type fileOptions struct {
	Rotation string `koanf:"rotation"`
}

// LoadOptions decodes YAML or JSON (format "yaml", "yml" or "json") over
// DefaultOptions. Keys absent from data keep their defaults.
func LoadOptions(data []byte, format string) (Options, error) {
	const op Op = "logboot.LoadOptions"

	opts := DefaultOptions()

	var parser koanf.Parser
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "yaml", "yml":
		parser = yaml.Parser()
	case "json":
		parser = json.Parser()
	default:
		return opts, newError(KindConfiguration, op, fmt.Sprintf("unsupported format %q", format), nil)
	}

	k := koanf.New(".")
	if len(data) > 0 {
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return opts, newError(KindConfiguration, op, "failed to parse options", err)
		}
	}

	conf := koanf.UnmarshalConf{Tag: "koanf"}
	if err := k.UnmarshalWithConf(emptyString, &opts, conf); err != nil {
		return opts, newError(KindConfiguration, op, "failed to decode options", err)
	}

	var extra fileOptions
	if err := k.UnmarshalWithConf(emptyString, &extra, conf); err != nil {
		return opts, newError(KindConfiguration, op, "failed to decode options", err)
	}
	if extra.Rotation != emptyString {
		r, err := ParseRotation(extra.Rotation)
		if err != nil {
			return opts, newError(KindConfiguration, op, "invalid rotation", err)
		}
		opts.Rotation = r
	}
	return opts, nil
}
