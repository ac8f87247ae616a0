package tui

import (
	"io"
	"net/http"

	"github.com/goliatone/go-formgate/pkg/upload"
)

// Theme holds the prefixes applied to messages printed through the driver.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// FileOpener turns a path typed at the prompt into an upload candidate.
type FileOpener func(path string) (upload.FileCandidate, error)

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithOutput sets where the default driver prints messages.
func WithOutput(out io.Writer) Option {
	return func(s *Session) {
		if out != nil {
			s.out = out
		}
	}
}

// WithHTTPClient enables option lookups for selector fields. Without it the
// session falls back to plain input.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Session) {
		s.httpClient = client
	}
}

// WithBaseURL prefixes relative lookup URLs.
func WithBaseURL(base string) Option {
	return func(s *Session) {
		s.baseURL = base
	}
}

// WithFileOpener overrides how typed paths become candidates.
func WithFileOpener(open FileOpener) Option {
	return func(s *Session) {
		if open != nil {
			s.open = open
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}
