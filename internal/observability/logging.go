package observability

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Configure installs the process-wide zerolog logger used by every
// component in this module: engines, the orchestrator, the local index, and
// the CLI entrypoint all log through github.com/rs/zerolog/log rather than
// holding their own logger instances.
//
// An empty logPath keeps logs on stdout. A non-empty path opens that file in
// append mode and logs go there instead, so a long-running research session
// doesn't interleave log lines with a terminal UI reading from stdout; if
// the file can't be opened, Configure falls back to stdout and reports the
// failure on stderr rather than aborting startup over a logging problem.
func Configure(logPath string, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var sink io.Writer = os.Stdout
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "observability: could not open log file %q, using stdout: %v\n", logPath, err)
		} else {
			sink = f
		}
	}
	log.Logger = log.Output(sink).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(parseLevel(level))

	// Capture anything still going through the standard library logger
	// (third-party dependencies that haven't adopted zerolog) in the same
	// stream.
	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger)
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
