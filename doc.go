// Package logboot initializes process-wide structured logging on top of
// rs/zerolog, with a rotating file sink and an optional panic reporter.
//
// Key features
//   - Severity filter resolved from LOG_LEVEL (e.g. "warn,store/db=debug"),
//     falling back to "info" when absent or unparsable
//   - Local UTC offset captured once; every timestamp uses it
//   - Pretty multi-line console output on stderr (optional) and a colorless
//     file sink rotated minutely, hourly, daily or never
//   - File writes go through a non-blocking writer; the returned Guard owns
//     its background flush worker
//   - Single install per process: a second Initialize returns
//     ErrAlreadyInitialized and leaves the first configuration in place
//
// Typical usage
//
//	guard, err := logboot.Initialize("logs", "myapp", "log", logboot.RotationHourly, true, true)
//	if err != nil {
//		fmt.Fprintln(os.Stderr, "logging disabled:", err)
//	}
//	defer guard.Close()
//	defer logboot.Recover()
//
//	log.Info().Str("user_id", id).Msg("processed")
//	db := logboot.Module("store/db")
//	db.Debug().Msg("query")
package logboot
