package logboot

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/atomic"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation is the cadence at which RollingFile starts a new file.
type Rotation int

const (
	RotationMinutely Rotation = iota + 1
	RotationHourly
	RotationDaily
	RotationNever
)

var rotationNames = map[Rotation]string{
	RotationMinutely: "minutely",
	RotationHourly:   "hourly",
	RotationDaily:    "daily",
	RotationNever:    "never",
}

// boundary schedules in standard cron syntax, evaluated in the file's location.
var rotationSpecs = map[Rotation]string{
	RotationMinutely: "* * * * *",
	RotationHourly:   "0 * * * *",
	RotationDaily:    "0 0 * * *",
}

var rotationLayouts = map[Rotation]string{
	RotationMinutely: "2006-01-02-15-04",
	RotationHourly:   "2006-01-02-15",
	RotationDaily:    "2006-01-02",
}

func (r Rotation) String() string {
	if name, ok := rotationNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Rotation(%d)", int(r))
}

// ParseRotation parses minutely, hourly, daily or never (case-insensitive).
func ParseRotation(s string) (Rotation, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for r, name := range rotationNames {
		if name == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rotation %q", s)
}

func (r Rotation) MarshalText() ([]byte, error) {
	if _, ok := rotationNames[r]; !ok {
		return nil, fmt.Errorf("unknown rotation %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Rotation) UnmarshalText(b []byte) error {
	v, err := ParseRotation(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RollingFile is an io.WriteCloser appending to dir/prefix.<period>.suffix
// and switching files at every rotation boundary. Period files are written
// through a lumberjack.Logger, so a period that outgrows MaxSizeMB is rolled
// into backups instead of growing without bound.
//
// Safe for concurrent use. A single Write always lands in exactly one file.
type RollingFile struct {
	dir      string
	prefix   string
	suffix   string
	rotation Rotation
	schedule cron.Schedule
	clock    func() time.Time
	loc      *time.Location

	maxSizeMB  int
	maxBackups int
	compress   bool

	mu      sync.Mutex
	current *lumberjack.Logger
	next    time.Time
	closed  atomic.Bool
}

// RollingOption configures a RollingFile.
type RollingOption func(*RollingFile)

// WithClock replaces time.Now as the source for rotation decisions.
func WithClock(clock func() time.Time) RollingOption {
	return func(r *RollingFile) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// WithLocation sets the zone period boundaries and file stamps are computed in.
func WithLocation(loc *time.Location) RollingOption {
	return func(r *RollingFile) {
		if loc != nil {
			r.loc = loc
		}
	}
}

// WithMaxSize caps one period file (MB) before it is rolled into a backup.
func WithMaxSize(mb int) RollingOption {
	return func(r *RollingFile) { r.maxSizeMB = mb }
}

// WithMaxBackups limits size-rolled backups kept per period. 0 keeps all.
// Files of earlier periods are never pruned; retention across periods is
// left to the operator.
func WithMaxBackups(n int) RollingOption {
	return func(r *RollingFile) { r.maxBackups = n }
}

// WithCompress gzips size-rolled backups.
func WithCompress(compress bool) RollingOption {
	return func(r *RollingFile) { r.compress = compress }
}

// NewRollingFile validates the naming configuration and opens the file for
// the current period. dir must already exist.
func NewRollingFile(dir, prefix, suffix string, rotation Rotation, opts ...RollingOption) (*RollingFile, error) {
	const op Op = "logboot.NewRollingFile"

	r := &RollingFile{
		dir:       dir,
		prefix:    strings.TrimSuffix(prefix, "."),
		suffix:    strings.TrimPrefix(suffix, "."),
		rotation:  rotation,
		clock:     time.Now,
		loc:       time.Local,
		maxSizeMB: DefaultMaxSizeMB,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	if err := r.validate(); err != nil {
		return nil, newError(KindAppenderInit, op, "invalid rotation or filename configuration", err)
	}

	if spec, ok := rotationSpecs[rotation]; ok {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, newError(KindAppenderInit, op, "invalid rotation schedule", err)
		}
		r.schedule = sched
	}

	now := r.now()
	if err := r.openLocked(now); err != nil {
		return nil, newError(KindAppenderInit, op, "failed to open initial log file", err)
	}
	return r, nil
}

func (r *RollingFile) validate() error {
	if _, ok := rotationNames[r.rotation]; !ok {
		return fmt.Errorf("unsupported rotation %s", r.rotation)
	}
	if r.dir == emptyString {
		return fmt.Errorf("directory is required")
	}
	if r.rotation == RotationNever && r.prefix == emptyString && r.suffix == emptyString {
		return fmt.Errorf("rotation %s needs a filename prefix or suffix", r.rotation)
	}
	for _, part := range []string{r.prefix, r.suffix} {
		if strings.ContainsAny(part, `/\`) || strings.ContainsRune(part, filepath.Separator) {
			return fmt.Errorf("filename part %q contains a path separator", part)
		}
	}
	if r.maxSizeMB < 0 || r.maxBackups < 0 {
		return fmt.Errorf("size limits must not be negative")
	}
	return nil
}

func (r *RollingFile) now() time.Time {
	return r.clock().In(r.loc)
}

// filename returns the file name for the period containing t.
func (r *RollingFile) filename(t time.Time) string {
	parts := make([]string, 0, 3)
	if r.prefix != emptyString {
		parts = append(parts, r.prefix)
	}
	if layout, ok := rotationLayouts[r.rotation]; ok {
		parts = append(parts, t.Format(layout))
	}
	if r.suffix != emptyString {
		parts = append(parts, r.suffix)
	}
	return strings.Join(parts, ".")
}

// openLocked points the file at the period containing now and opens it.
// Caller holds mu or has exclusive access.
//
// One lumberjack.Logger serves every period: it is closed and renamed at each
// boundary, so its mill goroutine is started once per RollingFile.
func (r *RollingFile) openLocked(now time.Time) error {
	path := filepath.Join(r.dir, r.filename(now))
	if r.current == nil {
		r.current = &lumberjack.Logger{
			MaxSize:    r.maxSizeMB,
			MaxBackups: r.maxBackups,
			Compress:   r.compress,
			LocalTime:  true,
		}
	} else {
		// lumberjack drops the handle even when closing it fails.
		_ = r.current.Close()
	}
	r.current.Filename = path
	if r.schedule != nil {
		r.next = r.schedule.Next(now)
	}
	// lumberjack opens lazily; a zero-length write opens the file now.
	_, err := r.current.Write(nil)
	return err
}

// Write appends p to the current period's file, rolling first if a boundary has passed.
func (r *RollingFile) Write(p []byte) (int, error) {
	if r.closed.Load() {
		return 0, ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed.Load() {
		return 0, ErrClosed
	}

	if r.schedule != nil {
		if now := r.now(); !now.Before(r.next) {
			if err := r.openLocked(now); err != nil {
				return 0, fmt.Errorf("rolling to %s: %w", r.current.Filename, err)
			}
		}
	}
	return r.current.Write(p)
}

// CurrentPath is the path of the file receiving writes.
func (r *RollingFile) CurrentPath() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return emptyString
	}
	return r.current.Filename
}

// Close closes the current file. Later writes return ErrClosed, as does a second Close.
func (r *RollingFile) Close() error {
	if r.closed.Swap(true) {
		return ErrClosed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	return r.current.Close()
}
