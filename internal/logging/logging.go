// Package logging builds the logfmt logger handed to every component.
package logging

import (
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// New returns a logfmt logger writing to w with a UTC timestamp, filtered
// at lvl. DEBUG enables debug lines; anything else logs info and above.
func New(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return withLevel(logger, lvl)
}

func withLevel(logger log.Logger, lvl string) log.Logger {
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "DEBUG":
		return level.NewFilter(logger, level.AllowDebug())
	case "WARN", "WARNING":
		return level.NewFilter(logger, level.AllowWarn())
	case "ERROR":
		return level.NewFilter(logger, level.AllowError())
	default:
		return level.NewFilter(logger, level.AllowInfo())
	}
}
