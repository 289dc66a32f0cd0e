package logboot

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const (
	timestampLayout = "2006-01-02T15:04:05.000000Z07:00"
	fieldIndent     = "\n    "

	ansiReset = "\x1b[0m"
	ansiDim   = "\x1b[2m"
	ansiBold  = "\x1b[1m"
	ansiCyan  = "\x1b[36m"
)

var levelColors = map[string]string{
	zerolog.LevelTraceValue: "\x1b[35m",
	zerolog.LevelDebugValue: "\x1b[34m",
	zerolog.LevelInfoValue:  "\x1b[32m",
	zerolog.LevelWarnValue:  "\x1b[33m",
	zerolog.LevelErrorValue: "\x1b[31m",
	zerolog.LevelFatalValue: "\x1b[31m",
	zerolog.LevelPanicValue: "\x1b[31m",
}

// layer is one unit of the logging pipeline. A layer may contribute a sink,
// decorate the root context, and touch zerolog globals at install time.
type layer struct {
	name     string
	sink     io.Writer
	decorate func(zerolog.Context) zerolog.Context
	install  func()
}

// consoleLayer writes pretty multi-line records to out, or to stderr when out is nil.
// Color is enabled only for a real stderr that is a terminal.
func consoleLayer(ts TimeSource, out io.Writer) layer {
	color := false
	if out == nil {
		color = stderrIsTerminal()
		out = zerolog.SyncWriter(colorable.NewColorableStderr())
	}
	return layer{name: "console", sink: prettyWriter(out, !color, ts)}
}

// fileLayer writes the same pretty format without color to out.
func fileLayer(ts TimeSource, out io.Writer) layer {
	return layer{name: "file", sink: prettyWriter(out, true, ts)}
}

func stderrIsTerminal() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func prettyWriter(out io.Writer, noColor bool, ts TimeSource) zerolog.ConsoleWriter {
	paint := func(code, s string) string {
		if noColor {
			return s
		}
		return code + s + ansiReset
	}
	fieldName := func(i interface{}) string {
		return fieldIndent + paint(ansiCyan, fmt.Sprintf("%s:", i)) + " "
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    noColor,
		TimeFormat: timestampLayout,
		FormatTimestamp: func(i interface{}) string {
			return paint(ansiDim, formatTimestamp(i, ts.Location()))
		},
		FormatLevel: func(i interface{}) string {
			s, _ := i.(string)
			label := fmt.Sprintf("%5s", strings.ToUpper(s))
			if code, ok := levelColors[s]; ok {
				return paint(code, label)
			}
			return label
		},
		FormatMessage: func(i interface{}) string {
			if i == nil {
				return emptyString
			}
			return paint(ansiBold, fmt.Sprint(i))
		},
		FormatFieldName:    fieldName,
		FormatErrFieldName: fieldName,
	}
}

func formatTimestamp(i interface{}, loc *time.Location) string {
	s, ok := i.(string)
	if !ok {
		return fmt.Sprint(i)
	}
	t, err := time.Parse(zerolog.TimeFieldFormat, s)
	if err != nil {
		return s
	}
	return t.In(loc).Format(timestampLayout)
}

// compose folds the layers in order into one logger: sinks are fanned out
// in layer order, decorations applied in layer order, then the root level
// from the filter is set.
func compose(filter Filter, layers []layer) zerolog.Logger {
	sinks := make([]io.Writer, 0, len(layers))
	for _, l := range layers {
		if l.sink != nil {
			sinks = append(sinks, l.sink)
		}
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(sinks...)).With().Timestamp().Caller()
	for _, l := range layers {
		if l.decorate != nil {
			ctx = l.decorate(ctx)
		}
	}
	return ctx.Logger().Level(filter.LevelFor(emptyString))
}
