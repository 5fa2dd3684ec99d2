package logx

import (
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger returns a zerolog logger writing console output to w at level.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		// Extract just the filename, not the full path
		short := file
		for i := len(file) - 1; i > 0; i-- {
			if file[i] == '/' {
				short = file[i+1:]
				break
			}
		}
		// Pad to 20 characters for alignment
		return fmt.Sprintf("%-20s", fmt.Sprintf("%s:%d", short, line))
	}
	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}

// Level maps the command line verbosity flags to a log level: quiet
// disables logging, otherwise warnings and above are shown and each -v
// lowers the threshold by one step.
func Level(quiet bool, verbose int) zerolog.Level {
	if quiet {
		return zerolog.Disabled
	}
	switch {
	case verbose <= 0:
		return zerolog.WarnLevel
	case verbose == 1:
		return zerolog.InfoLevel
	case verbose == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}

// Verbosity is a repeatable boolean flag: each -v increments it.
type Verbosity int

func (v *Verbosity) String() string { return fmt.Sprint(int(*v)) }

// Set implements flag.Value.
func (v *Verbosity) Set(s string) error {
	switch s {
	case "true":
		*v++
	case "false":
	default:
		var n int
		if _, err := fmt.Sscan(s, &n); err != nil {
			return fmt.Errorf("invalid verbosity %q", s)
		}
		*v = Verbosity(n)
	}
	return nil
}

// IsBoolFlag lets -v be given without a value.
func (v *Verbosity) IsBoolFlag() bool { return true }
