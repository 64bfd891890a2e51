// Package logger configures zerolog for the CLI and logs outgoing API calls.
package logger

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup returns the CLI logger. Output goes to stderr so command output on
// stdout stays clean; only warnings and errors are shown unless debug is set.
func Setup(debug bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if debug {
		level = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	if debug {
		logger = logger.With().Caller().Logger()
	}

	return logger
}

var _ http.RoundTripper = (*HTTPRequests)(nil)

// HTTPRequests logs every outgoing API request with its status and duration.
// Headers are never logged.
type HTTPRequests struct {
	next http.RoundTripper
}

func NewHTTPRequests(next http.RoundTripper) *HTTPRequests {
	if next == nil {
		next = http.DefaultTransport
	}
	return &HTTPRequests{next: next}
}

func (h *HTTPRequests) RoundTrip(req *http.Request) (*http.Response, error) {
	started := time.Now()

	base := log.Logger
	if l := zerolog.Ctx(req.Context()); l.GetLevel() != zerolog.Disabled {
		base = *l
	}

	logger := base.With().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("requestID", req.Header.Get("X-Request-ID")).
		Logger()

	resp, err := h.next.RoundTrip(req)
	if err != nil {
		logger.Debug().
			Err(err).
			Dur("duration", time.Since(started)).
			Msg("api call failed")

		return resp, err
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api call")

	return resp, nil
}
