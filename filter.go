package logboot

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Filter is an immutable severity filter over (module path, level) pairs.
//
// The expression grammar is a comma separated list of directives. A bare
// level ("debug") sets the default; "module=level" overrides it for a module
// path and everything below it. The longest matching module wins.
type Filter struct {
	def        zerolog.Level
	directives []directive
}

type directive struct {
	module string
	level  zerolog.Level
}

// ParseFilter parses a filter expression. Any invalid directive fails the whole expression.
func ParseFilter(expr string) (Filter, error) {
	f := Filter{def: zerolog.InfoLevel}
	expr = strings.TrimSpace(expr)
	if expr == emptyString {
		return f, fmt.Errorf("empty filter expression")
	}

	seenDefault := false
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)
		if part == emptyString {
			continue
		}
		module, lvl, scoped := strings.Cut(part, "=")
		if !scoped {
			l, err := parseLevel(part)
			if err != nil {
				return Filter{}, err
			}
			if seenDefault {
				return Filter{}, fmt.Errorf("duplicate default level %q", part)
			}
			f.def = l
			seenDefault = true
			continue
		}
		module = strings.TrimSpace(module)
		if module == emptyString {
			return Filter{}, fmt.Errorf("directive %q has no module", part)
		}
		l, err := parseLevel(strings.TrimSpace(lvl))
		if err != nil {
			return Filter{}, err
		}
		f.directives = append(f.directives, directive{module: module, level: l})
	}

	// Longest module first so the first match is the most specific one.
	sort.SliceStable(f.directives, func(i, j int) bool {
		return len(f.directives[i].module) > len(f.directives[j].module)
	})
	return f, nil
}

// MustParseFilter is ParseFilter that panics on error. Intended for constants.
func MustParseFilter(expr string) Filter {
	f, err := ParseFilter(expr)
	if err != nil {
		panic(err)
	}
	return f
}

// FilterFromEnv reads the filter from the named environment variable.
// It never fails: an unset, empty or unparsable value yields the DefaultFilter.
func FilterFromEnv(name string) Filter {
	return filterFromEnv(name, DefaultFilter)
}

func filterFromEnv(name, fallback string) Filter {
	if name == emptyString {
		name = DefaultFilterEnv
	}
	if v, ok := os.LookupEnv(name); ok {
		if f, err := ParseFilter(v); err == nil {
			return f
		}
	}
	if f, err := ParseFilter(fallback); err == nil {
		return f
	}
	return MustParseFilter(DefaultFilter)
}

// LevelFor returns the minimum level enabled for module. The empty module is the root.
func (f Filter) LevelFor(module string) zerolog.Level {
	for _, d := range f.directives {
		if moduleMatches(d.module, module) {
			return d.level
		}
	}
	return f.def
}

// Enabled reports whether a record at level from module passes the filter.
func (f Filter) Enabled(module string, level zerolog.Level) bool {
	threshold := f.LevelFor(module)
	if threshold == zerolog.Disabled || level == zerolog.Disabled {
		return false
	}
	return level >= threshold
}

// MinLevel is the most verbose level any directive enables.
func (f Filter) MinLevel() zerolog.Level {
	lowest := f.def
	for _, d := range f.directives {
		if d.level < lowest {
			lowest = d.level
		}
	}
	return lowest
}

func (f Filter) String() string {
	parts := []string{levelName(f.def)}
	for i := len(f.directives) - 1; i >= 0; i-- {
		d := f.directives[i]
		parts = append(parts, d.module+"="+levelName(d.level))
	}
	return strings.Join(parts, ",")
}

// moduleMatches reports whether path equals prefix or lies below it.
func moduleMatches(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) {
		return true
	}
	rest := path[len(prefix):]
	return strings.HasPrefix(rest, "/") || strings.HasPrefix(rest, ".") || strings.HasPrefix(rest, "::")
}

// parseLevel parses a string log level into a zerolog.Level.
// "off" is accepted as an alias for disabled; the empty string is rejected.
func parseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(level) {
	case emptyString:
		return zerolog.NoLevel, fmt.Errorf("empty level")
	case "off", "none":
		return zerolog.Disabled, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, err
	}
	if l == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("unknown level %q", level)
	}
	return l, nil
}

func levelName(l zerolog.Level) string {
	if l == zerolog.Disabled {
		return "off"
	}
	return l.String()
}
