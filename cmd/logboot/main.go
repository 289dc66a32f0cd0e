// logboot initializes logging the way an application would and emits one
// record per level, which makes it easy to check a filter expression or a
// rotation setup by hand.
//
// Usage:
//
//	logboot [--dir logs] [--prefix app] [--suffix log] [--rotation hourly]
//	        [--console] [--reporter] [--config logboot.yaml] [--panic]
//
// Example:
//
//	LOG_LEVEL="warn,demo/db=trace" logboot --console --rotation minutely
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Station-Manager/logboot"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "logboot:", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "logboot",
		Usage: "initialize logging and emit sample records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "YAML or JSON options file"},
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "logs directory"},
			&cli.StringFlag{Name: "prefix", Usage: "log filename prefix"},
			&cli.StringFlag{Name: "suffix", Usage: "log filename suffix"},
			&cli.StringFlag{Name: "rotation", Aliases: []string{"r"}, Usage: "minutely, hourly, daily or never"},
			&cli.BoolFlag{Name: "console", Usage: "also log to stderr"},
			&cli.BoolFlag{Name: "reporter", Usage: "install the panic reporter"},
			&cli.BoolFlag{Name: "panic", Usage: "panic after emitting the samples"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := resolveOptions(cmd)
			if err != nil {
				return err
			}
			return logboot.Run(opts, func() error {
				emitSamples()
				if cmd.Bool("panic") {
					panic(errors.New("requested by --panic"))
				}
				return nil
			})
		},
	}
}

// resolveOptions layers flags over the config file over the defaults.
func resolveOptions(cmd *cli.Command) (logboot.Options, error) {
	opts := logboot.DefaultOptions()
	if path := cmd.String("config"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("reading config: %w", err)
		}
		format := strings.TrimPrefix(filepath.Ext(path), ".")
		if opts, err = logboot.LoadOptions(data, format); err != nil {
			return opts, err
		}
	}
	if cmd.IsSet("dir") {
		opts.LogsDir = cmd.String("dir")
	}
	if cmd.IsSet("prefix") {
		opts.FilenamePrefix = cmd.String("prefix")
	}
	if cmd.IsSet("suffix") {
		opts.FilenameSuffix = cmd.String("suffix")
	}
	if cmd.IsSet("rotation") {
		r, err := logboot.ParseRotation(cmd.String("rotation"))
		if err != nil {
			return opts, err
		}
		opts.Rotation = r
	}
	if cmd.IsSet("console") {
		opts.EnableConsole = cmd.Bool("console")
	}
	if cmd.IsSet("reporter") {
		opts.InstallReporter = cmd.Bool("reporter")
	}
	return opts, nil
}

func emitSamples() {
	log.Trace().Msg("This is a trace log")
	log.Debug().Msg("This is a debug log")
	log.Info().Msg("This is an info log")
	log.Warn().Msg("This is a warning log")
	log.Error().Err(fmt.Errorf("sample: %w", os.ErrNotExist)).Msg("This is an error log")

	db := logboot.Module("demo/db")
	db.Debug().Int("rows", 7).Msg("query finished")
}
